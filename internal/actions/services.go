// Package actions содержит конкретные реализации именованных действий
// пайплайна (parse_html, save_note, track_completion, …), собираемые
// через internal/pipeline.Registry в список на воркер.
package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/categorization"
	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/pattern"
)

// NoteStore is the subset of internal/repo.NoteRepo the actions need.
type NoteStore interface {
	UpdateNote(ctx context.Context, noteID string, fields map[string]any) error
	GetNoteCategories(ctx context.Context, noteID string) ([]string, error)
	GetNoteTags(ctx context.Context, noteID string) ([]string, error)
}

// Fanout enqueues the sibling jobs a saved note spawns (one per
// ingredient line, one instruction batch, one per image) and primes
// the completion tracker's counters for them. Mechanics of deciding
// line/image boundaries are out of this package's scope — save_note
// passes through whatever the upstream parse already split out.
type Fanout interface {
	EnqueueNoteFanout(ctx context.Context, noteID, importID string, ingredientLines []string, instructionText string, imageURLs []string) error
}

// Services bundles the collaborators actions depend on, passed
// through pipeline.Dependencies.Services as a single concrete value so
// each action can type-assert it without widening Dependencies itself.
type Services struct {
	Notes       NoteStore
	Fanout      Fanout
	Completion  *completion.Tracker
	Patterns    *pattern.Tracker
	Categorizer *categorization.Coordinator
}
