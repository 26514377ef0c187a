package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/pipeline"
)

// trackCompletionBroadcaster adapts pipeline.StatusBroadcaster to
// completion.Broadcaster so the tracker's terminal protocol can emit a
// status event without importing internal/status directly.
type trackCompletionBroadcaster struct {
	inner pipeline.StatusBroadcaster
}

func (b trackCompletionBroadcaster) Broadcast(ctx context.Context, event completion.TerminalEvent) error {
	if b.inner == nil {
		return nil
	}
	return b.inner.Broadcast(ctx, statusEvent(
		pipeline.PipelineData{NoteID: event.NoteID, ImportID: event.ImportID},
		"COMPLETED", "note processing complete", event.Context,
	))
}

// TrackCompletionAction reports the completion of its bound worker
// kind (Kind, fixed at construction) to the shared completion tracker.
type TrackCompletionAction struct {
	Kind completion.WorkerKind
}

// NewTrackCompletionAction builds a track_completion action bound to
// a fixed worker kind (one per worker type: note/instruction/
// ingredient/image).
func NewTrackCompletionAction(kind completion.WorkerKind) *TrackCompletionAction {
	return &TrackCompletionAction{Kind: kind}
}

func (a *TrackCompletionAction) Name() string    { return "track_completion" }
func (a *TrackCompletionAction) Retryable() bool { return false }

func (a *TrackCompletionAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Completion == nil {
		return data, nil
	}

	bc := trackCompletionBroadcaster{inner: deps.Broadcaster}
	svc.Completion.MarkWorkerCompleted(ctx, data.NoteID, a.Kind, bc)
	return data, nil
}
