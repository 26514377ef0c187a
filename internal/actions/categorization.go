package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// WaitForCategorizationAction delegates to the categorization
// coordinator's bounded polling loop and stores its result-shape
// fields in data for downstream actions/status events.
type WaitForCategorizationAction struct{}

func NewWaitForCategorizationAction() *WaitForCategorizationAction {
	return &WaitForCategorizationAction{}
}

func (a *WaitForCategorizationAction) Name() string    { return "wait_for_categorization" }
func (a *WaitForCategorizationAction) Retryable() bool { return false }

func (a *WaitForCategorizationAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Categorizer == nil {
		return data, nil
	}

	result := svc.Categorizer.Wait(ctx, data.NoteID, data.ImportID, actx.JobID)

	out := data.With("categorizationSuccess", result.Success)
	out = out.With("categorizationScheduled", result.CategorizationScheduled)
	out = out.With("categorizationRetryCount", result.RetryCount)
	out = out.With("categorizationMaxRetries", result.MaxRetries)
	out = out.With("hasCategorization", result.HasCategorization)
	out = out.With("hasTags", result.HasTags)
	out = out.With("categoriesCount", result.CategoriesCount)
	out = out.With("tagsCount", result.TagsCount)
	return out, nil
}

// ScheduleCategorizationAction is a thin marker action some worker
// pipelines place ahead of wait_for_categorization to record intent in
// the status stream; the actual scheduling call happens inside the
// coordinator once ingredient fan-out drains.
type ScheduleCategorizationAction struct{}

func NewScheduleCategorizationAction() *ScheduleCategorizationAction {
	return &ScheduleCategorizationAction{}
}

func (a *ScheduleCategorizationAction) Name() string    { return "schedule_categorization" }
func (a *ScheduleCategorizationAction) Retryable() bool { return false }

func (a *ScheduleCategorizationAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	if deps.Broadcaster != nil {
		_ = deps.Broadcaster.Broadcast(ctx, statusEvent(data, "PROCESSING", "categorization scheduled", "categorization"))
	}
	return data, nil
}
