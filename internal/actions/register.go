package actions

import (
	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/pipeline"
)

// Register populates reg with a factory for every named action in the
// pipeline's external interface. trackCompletionKind selects which
// worker-kind flag track_completion flips for this worker — each
// worker registers its own Registry instance with the kind it owns.
func Register(reg *pipeline.Registry, trackCompletionKind completion.WorkerKind) {
	reg.Register("parse_html", func(deps *pipeline.Dependencies) pipeline.Action { return NewParseHTMLAction() })
	reg.Register("clean_html", func(deps *pipeline.Dependencies) pipeline.Action { return NewCleanHTMLAction() })
	reg.Register("save_note", func(deps *pipeline.Dependencies) pipeline.Action { return NewSaveNoteAction() })
	reg.Register("wait_for_categorization", func(deps *pipeline.Dependencies) pipeline.Action { return NewWaitForCategorizationAction() })
	reg.Register("schedule_categorization", func(deps *pipeline.Dependencies) pipeline.Action { return NewScheduleCategorizationAction() })
	reg.Register("track_completion", func(deps *pipeline.Dependencies) pipeline.Action { return NewTrackCompletionAction(trackCompletionKind) })
	reg.Register("log_error", func(deps *pipeline.Dependencies) pipeline.Action { return NewLogErrorAction() })
	reg.Register("capture_error", func(deps *pipeline.Dependencies) pipeline.Action { return NewCaptureErrorAction() })
	reg.Register("error_recovery", func(deps *pipeline.Dependencies) pipeline.Action { return NewErrorRecoveryAction() })
	reg.Register("no_op", func(deps *pipeline.Dependencies) pipeline.Action { return NewNoOpAction() })
	reg.Register("process_ingredient_line", func(deps *pipeline.Dependencies) pipeline.Action { return NewProcessIngredientLineAction() })
	reg.Register("save_ingredient_line", func(deps *pipeline.Dependencies) pipeline.Action { return NewSaveIngredientLineAction() })
	reg.Register("track_pattern", func(deps *pipeline.Dependencies) pipeline.Action { return NewTrackPatternAction() })
	reg.Register("process_image", func(deps *pipeline.Dependencies) pipeline.Action { return NewProcessImageAction() })
	reg.Register("save_image", func(deps *pipeline.Dependencies) pipeline.Action { return NewSaveImageAction() })
}
