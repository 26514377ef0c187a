package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// ProcessImageAction derives a deterministic storage path for a
// source image URL; actual download/transcoding is out of scope.
type ProcessImageAction struct{}

func NewProcessImageAction() *ProcessImageAction { return &ProcessImageAction{} }

func (a *ProcessImageAction) Name() string    { return "process_image" }
func (a *ProcessImageAction) Retryable() bool { return false }

func (a *ProcessImageAction) ValidateInput(data pipeline.PipelineData) error {
	if _, ok := data.Get("sourceUrl"); !ok {
		return &pipeline.ValidationError{Action: a.Name(), Message: "missing sourceUrl field"}
	}
	return nil
}

func (a *ProcessImageAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	sourceURL, _ := data.Get("sourceUrl")
	idx, _ := data.GetInt("imageIndex")

	path := imageRefPath(data.NoteID, idx, sourceURL.(string))
	return data.With("imagePath", path), nil
}

// SaveImageAction records the processed image job as complete against
// the shared completion tracker.
type SaveImageAction struct{}

func NewSaveImageAction() *SaveImageAction { return &SaveImageAction{} }

func (a *SaveImageAction) Name() string    { return "save_image" }
func (a *SaveImageAction) Retryable() bool { return true }

func (a *SaveImageAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Completion == nil {
		return data, nil
	}

	bc := trackCompletionBroadcaster{inner: deps.Broadcaster}
	svc.Completion.MarkImageJobCompleted(ctx, data.NoteID, bc)
	return data, nil
}
