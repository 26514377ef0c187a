package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// FieldBusinessOutcome holds a terminal-business-failure marker
// (e.g. a parse outcome of "INCORRECT") that pipeline stages set
// instead of returning an error, per the error-handling design's
// TerminalBusinessFailure kind.
const FieldBusinessOutcome = "businessOutcome"

// NoOpAction performs no work; useful as a placeholder stage or as
// the tail of a conditionally-built action list.
type NoOpAction struct{}

func NewNoOpAction() *NoOpAction { return &NoOpAction{} }

func (a *NoOpAction) Name() string     { return "no_op" }
func (a *NoOpAction) Retryable() bool  { return false }
func (a *NoOpAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	return data, nil
}

// LogErrorAction logs the last error carried in data's Fields (under
// "lastError") without altering the pipeline's success/failure state.
// Placed after a stage that records an error, not a terminal handler.
type LogErrorAction struct{}

func NewLogErrorAction() *LogErrorAction { return &LogErrorAction{} }

func (a *LogErrorAction) Name() string    { return "log_error" }
func (a *LogErrorAction) Retryable() bool { return false }
func (a *LogErrorAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	if v, ok := data.Get("lastError"); ok && deps.Logger != nil {
		deps.Logger.Error("pipeline recorded error", "note_id", data.NoteID, "job_id", actx.JobID, "error", v)
	}
	return data, nil
}

// CaptureErrorAction is a named marker for action lists: its Execute
// passes data through unchanged and its ErrorObserver hook does
// nothing. It does not write "lastError" into data.
type CaptureErrorAction struct{}

func NewCaptureErrorAction() *CaptureErrorAction { return &CaptureErrorAction{} }

func (a *CaptureErrorAction) Name() string    { return "capture_error" }
func (a *CaptureErrorAction) Retryable() bool { return false }
func (a *CaptureErrorAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	return data, nil
}

func (a *CaptureErrorAction) OnError(ctx context.Context, err error, data pipeline.PipelineData, deps *pipeline.Dependencies) {
	// Intentionally a no-op beyond the interface satisfaction: the
	// ErrorHandlingWrapper already calls deps.ErrorHandler.Handle with
	// the same error; this hook exists so capture_error can be named
	// explicitly in an action list for log readability.
}

// ErrorRecoveryAction clears a previously captured error and marks the
// pipeline as recovered, allowing a subsequent stage to continue
// instead of failing the job outright.
type ErrorRecoveryAction struct{}

func NewErrorRecoveryAction() *ErrorRecoveryAction { return &ErrorRecoveryAction{} }

func (a *ErrorRecoveryAction) Name() string    { return "error_recovery" }
func (a *ErrorRecoveryAction) Retryable() bool { return false }
func (a *ErrorRecoveryAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	out := data.With("recovered", true)
	out = out.With("lastError", nil)
	return out, nil
}
