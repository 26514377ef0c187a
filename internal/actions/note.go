package actions

import (
	"context"
	"fmt"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// SaveNoteAction persists the parsed note fields via the NoteStore
// collaborator. Expects "text" (and optionally "title") in data.
type SaveNoteAction struct{}

func NewSaveNoteAction() *SaveNoteAction { return &SaveNoteAction{} }

func (a *SaveNoteAction) Name() string    { return "save_note" }
func (a *SaveNoteAction) Retryable() bool { return true }

func (a *SaveNoteAction) ValidateInput(data pipeline.PipelineData) error {
	if data.NoteID == "" {
		return &pipeline.ValidationError{Action: a.Name(), Message: "missing noteId"}
	}
	return nil
}

func (a *SaveNoteAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Notes == nil {
		return data, &pipeline.ValidationError{Action: a.Name(), Message: "note store not configured"}
	}

	fields := map[string]any{}
	if text, ok := data.Get("text"); ok {
		fields["body"] = text
	}
	if title, ok := data.Get("title"); ok {
		fields["title"] = title
	}

	if err := svc.Notes.UpdateNote(ctx, data.NoteID, fields); err != nil {
		return data, &pipeline.TransientIOError{Op: fmt.Sprintf("save_note(%s)", data.NoteID), Err: err}
	}

	if svc.Fanout != nil {
		var ingredientLines []string
		if block, ok := data.Get("ingredientBlock"); ok {
			if s, ok := block.(string); ok {
				ingredientLines = splitIngredientLines(s)
			}
		}
		instructionText, _ := data.Get("instructionText")
		instructionStr, _ := instructionText.(string)

		var imageURLs []string
		if raw, ok := data.Get("imageUrls"); ok {
			if urls, ok := raw.([]string); ok {
				imageURLs = urls
			}
		}

		if err := svc.Fanout.EnqueueNoteFanout(ctx, data.NoteID, data.ImportID, ingredientLines, instructionStr, imageURLs); err != nil {
			return data, &pipeline.TransientIOError{Op: fmt.Sprintf("save_note_fanout(%s)", data.NoteID), Err: err}
		}
	}

	return data, nil
}
