package pipeline

import (
	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/middleware"
)

// Runtime owns the process-wide static state the system needs: the
// circuit-breaker registry and the completion tracker. Both live
// inside one constructed value, rather than package-level globals, so
// tests can build a fresh Runtime without cross-test leakage.
type Runtime struct {
	Breakers   *middleware.Registry
	Completion *completion.Tracker
}

// NewRuntime wires a fresh Runtime. updater may be nil.
func NewRuntime(updater completion.NoteUpdater) *Runtime {
	return &Runtime{
		Breakers:   middleware.NewRegistry(),
		Completion: completion.NewTracker(updater, nil),
	}
}
