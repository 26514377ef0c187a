package pipeline

import (
	"context"
	"log/slog"
)

// LoggingErrorHandler is the default ErrorHandler: it classifies the
// error and logs it at a level proportional to severity. Validation
// errors are the caller's fault and logged at warn; everything else
// is an operational failure logged at error.
type LoggingErrorHandler struct {
	Logger *slog.Logger
}

// NewLoggingErrorHandler builds a LoggingErrorHandler. logger may be
// nil, in which case slog.Default() is used.
func NewLoggingErrorHandler(logger *slog.Logger) *LoggingErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingErrorHandler{Logger: logger}
}

func (h *LoggingErrorHandler) Handle(ctx context.Context, err error, data PipelineData, actx ActionContext) {
	kind := Classify(err)
	attrs := []any{
		"error", err,
		"errorKind", string(kind),
		"noteId", data.NoteID,
		"importId", data.ImportID,
		"operation", actx.Operation,
		"jobId", actx.JobID,
		"attempt", actx.AttemptNumber,
	}

	if kind == KindValidation {
		h.Logger.Warn("action failed", attrs...)
		return
	}
	h.Logger.Error("action failed", attrs...)
}
