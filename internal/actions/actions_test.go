package actions

import (
	"context"
	"testing"

	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/pipeline"
)

type fakeNoteStore struct {
	updated map[string]map[string]any
}

func (f *fakeNoteStore) UpdateNote(ctx context.Context, noteID string, fields map[string]any) error {
	if f.updated == nil {
		f.updated = map[string]map[string]any{}
	}
	f.updated[noteID] = fields
	return nil
}

func (f *fakeNoteStore) GetNoteCategories(ctx context.Context, noteID string) ([]string, error) {
	return nil, nil
}

func (f *fakeNoteStore) GetNoteTags(ctx context.Context, noteID string) ([]string, error) {
	return nil, nil
}

func TestSaveNoteActionPersistsFields(t *testing.T) {
	store := &fakeNoteStore{}
	deps := &pipeline.Dependencies{Services: &Services{Notes: store}}

	data := pipeline.NewPipelineData("N1", "I1")
	data = data.With("text", "hello world")

	action := NewSaveNoteAction()
	_, err := action.Execute(context.Background(), data, deps, pipeline.ActionContext{})
	if err != nil {
		t.Fatal(err)
	}
	if store.updated["N1"]["body"] != "hello world" {
		t.Errorf("expected body to be saved, got %v", store.updated["N1"])
	}
}

type fakeFanout struct {
	noteID, importID string
	lines            []string
	instructions     string
	images           []string
}

func (f *fakeFanout) EnqueueNoteFanout(ctx context.Context, noteID, importID string, ingredientLines []string, instructionText string, imageURLs []string) error {
	f.noteID, f.importID, f.lines, f.instructions, f.images = noteID, importID, ingredientLines, instructionText, imageURLs
	return nil
}

func TestSaveNoteActionTriggersFanout(t *testing.T) {
	store := &fakeNoteStore{}
	fanout := &fakeFanout{}
	deps := &pipeline.Dependencies{Services: &Services{Notes: store, Fanout: fanout}}

	data := pipeline.NewPipelineData("N1", "I1").
		With("text", "hello").
		With("ingredientBlock", "1 cup flour\n\n2 eggs").
		With("instructionText", "mix well").
		With("imageUrls", []string{"http://example.com/a.jpg"})

	action := NewSaveNoteAction()
	if _, err := action.Execute(context.Background(), data, deps, pipeline.ActionContext{}); err != nil {
		t.Fatal(err)
	}

	if len(fanout.lines) != 2 {
		t.Errorf("expected 2 ingredient lines, got %v", fanout.lines)
	}
	if fanout.instructions != "mix well" {
		t.Errorf("expected instruction text to pass through, got %q", fanout.instructions)
	}
	if len(fanout.images) != 1 {
		t.Errorf("expected 1 image url, got %v", fanout.images)
	}
}

func TestTrackCompletionActionMarksWorkerKind(t *testing.T) {
	tracker := completion.NewTracker(nil, nil)
	tracker.Initialize("N2", "I2")

	deps := &pipeline.Dependencies{Services: &Services{Completion: tracker}}
	action := NewTrackCompletionAction(completion.WorkerNote)

	data := pipeline.NewPipelineData("N2", "I2")
	if _, err := action.Execute(context.Background(), data, deps, pipeline.ActionContext{}); err != nil {
		t.Fatal(err)
	}

	status, ok := tracker.GetNoteCompletionStatus("N2")
	if !ok {
		t.Fatal("expected entry to still exist")
	}
	if !status.NoteCompleted {
		t.Error("expected noteCompleted=true after track_completion(note)")
	}
}

func TestNoOpActionPassesDataThrough(t *testing.T) {
	action := NewNoOpAction()
	data := pipeline.NewPipelineData("N3", "I3").With("k", "v")
	out, err := action.Execute(context.Background(), data, &pipeline.Dependencies{}, pipeline.ActionContext{})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Get("k"); v != "v" {
		t.Errorf("expected field to survive no_op, got %v", v)
	}
}
