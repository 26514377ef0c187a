package actions

import (
	"context"
	"fmt"

	"github.com/shaiso/notepipe/internal/pattern"
	"github.com/shaiso/notepipe/internal/pipeline"
)

// ProcessIngredientLineAction splits the ingredient block carried in
// "block" into discrete lines. The grammar that classifies quantity/
// unit/name within a line is out of scope; this only segments text.
type ProcessIngredientLineAction struct{}

func NewProcessIngredientLineAction() *ProcessIngredientLineAction {
	return &ProcessIngredientLineAction{}
}

func (a *ProcessIngredientLineAction) Name() string    { return "process_ingredient_line" }
func (a *ProcessIngredientLineAction) Retryable() bool { return false }

func (a *ProcessIngredientLineAction) ValidateInput(data pipeline.PipelineData) error {
	if _, ok := data.Get("block"); !ok {
		return &pipeline.ValidationError{Action: a.Name(), Message: "missing block field"}
	}
	return nil
}

func (a *ProcessIngredientLineAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	block, _ := data.Get("block")
	lines := splitIngredientLines(block.(string))
	return data.With("lines", lines), nil
}

// SaveIngredientLineAction persists one ingredient line and marks it
// completed on the shared completion tracker; "blockIndex"/"lineIndex"
// identify the (block, line) pair the tracker deduplicates on.
type SaveIngredientLineAction struct{}

func NewSaveIngredientLineAction() *SaveIngredientLineAction {
	return &SaveIngredientLineAction{}
}

func (a *SaveIngredientLineAction) Name() string    { return "save_ingredient_line" }
func (a *SaveIngredientLineAction) Retryable() bool { return true }

func (a *SaveIngredientLineAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Completion == nil {
		return data, nil
	}

	b, _ := data.GetInt("blockIndex")
	l, _ := data.GetInt("lineIndex")

	bc := trackCompletionBroadcaster{inner: deps.Broadcaster}
	svc.Completion.MarkIngredientLineCompleted(ctx, data.NoteID, b, l, bc)
	return data, nil
}

// TrackPatternAction feeds the parsed rule sequence for this line
// ("rules") into the pattern tracker.
type TrackPatternAction struct{}

func NewTrackPatternAction() *TrackPatternAction { return &TrackPatternAction{} }

func (a *TrackPatternAction) Name() string    { return "track_pattern" }
func (a *TrackPatternAction) Retryable() bool { return false }

func (a *TrackPatternAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	svc, ok := deps.Services.(*Services)
	if !ok || svc.Patterns == nil {
		return data, nil
	}

	rulesRaw, ok := data.Get("rules")
	if !ok {
		return data, nil
	}
	rules, ok := rulesRaw.([]pattern.PatternRule)
	if !ok {
		return data, nil
	}

	exampleLine, _ := data.Get("exampleLine")
	lineID, _ := data.Get("ingredientLineId")

	exampleStr, _ := exampleLine.(string)
	lineIDStr, _ := lineID.(string)

	id, err := svc.Patterns.TrackPattern(ctx, rules, exampleStr, lineIDStr)
	if err != nil {
		return data, &pipeline.TransientIOError{Op: fmt.Sprintf("track_pattern(%s)", data.NoteID), Err: err}
	}
	return data.With("patternId", id), nil
}
