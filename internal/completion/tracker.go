// Package completion реализует трекер завершения: внутрипроцессный
// реестр, ключом по noteId объединяющий четыре независимых
// завершения воркеров плюс подзавершения по картинкам и строкам
// ингредиентов в единое терминальное событие.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerKind перечисляет четыре воркера, чьё завершение отслеживается.
type WorkerKind string

const (
	WorkerNote        WorkerKind = "note"
	WorkerInstruction WorkerKind = "instruction"
	WorkerIngredient  WorkerKind = "ingredient"
	WorkerImage       WorkerKind = "image"
)

// NoteCompletionStatus — состояние завершения одного note.
type NoteCompletionStatus struct {
	NoteID   string
	ImportID string

	NoteCompleted        bool
	InstructionCompleted bool
	IngredientCompleted  bool
	ImageCompleted       bool

	TotalImageJobs     int
	CompletedImageJobs int

	TotalIngredientLines int
	completedLines       map[string]struct{}

	AllCompleted bool

	// CreatedAt is set by Initialize and consulted by the
	// housekeeping sweep to detect entries stuck past a crash.
	CreatedAt time.Time
}

// CompletedIngredientLines returns how many distinct (block,line)
// pairs have been marked so far.
func (s *NoteCompletionStatus) CompletedIngredientLines() int {
	return len(s.completedLines)
}

// IngredientStatus — производное представление прогресса по строкам
// ингредиентов.
type IngredientStatus struct {
	Completed  int
	Total      int
	Fraction   string
	IsComplete bool
}

// Broadcaster — минимальный интерфейс вещания, передаваемый по
// вызову, а не хранимый полем, чтобы трекер не зависел от пакета,
// который его вещатели в итоге реализуют.
type Broadcaster interface {
	Broadcast(ctx context.Context, event TerminalEvent) error
}

// TerminalEvent — снимок, транслируемый по завершении note.
type TerminalEvent struct {
	NoteID               string
	ImportID             string
	Context              string
	TotalImageJobs       int
	CompletedImageJobs   int
	TotalIngredientLines int
	CompletedLines       int
}

// NoteUpdater обновляет внешнюю запись статуса note; реализуется
// internal/repo.NoteRepo.
type NoteUpdater interface {
	MarkNoteCompleted(ctx context.Context, noteID string) error
}

// Tracker — потокобезопасный реестр NoteCompletionStatus.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*NoteCompletionStatus

	updater NoteUpdater
	logger  *slog.Logger
}

// NewTracker создаёт трекер. updater может быть nil — обновление
// внешнего статуса note тогда пропускается.
func NewTracker(updater NoteUpdater, logger *slog.Logger) *Tracker {
	return &Tracker{
		entries: make(map[string]*NoteCompletionStatus),
		updater: updater,
		logger:  logger,
	}
}

// Initialize создаёт (перезаписывая любую существующую) запись для
// noteId.
func (t *Tracker) Initialize(noteID, importID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[noteID] = &NoteCompletionStatus{
		NoteID:         noteID,
		ImportID:       importID,
		completedLines: make(map[string]struct{}),
		CreatedAt:      time.Now(),
	}
}

func (t *Tracker) getOrAutoCreate(noteID string) *NoteCompletionStatus {
	entry, ok := t.entries[noteID]
	if !ok {
		entry = &NoteCompletionStatus{
			NoteID:         noteID,
			ImportID:       "unknown",
			completedLines: make(map[string]struct{}),
			CreatedAt:      time.Now(),
		}
		t.entries[noteID] = entry
	}
	return entry
}

// SetTotalImageJobs sets the expected count of fan-out image jobs.
func (t *Tracker) SetTotalImageJobs(noteID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.getOrAutoCreate(noteID)
	entry.TotalImageJobs = n
}

// SetTotalIngredientLines sets the expected count of ingredient lines.
func (t *Tracker) SetTotalIngredientLines(noteID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.getOrAutoCreate(noteID)
	entry.TotalIngredientLines = n
}

// MarkImageJobCompleted records completion of one image job.
func (t *Tracker) MarkImageJobCompleted(ctx context.Context, noteID string, bc Broadcaster) {
	t.mu.Lock()

	entry := t.getOrAutoCreate(noteID)
	entry.CompletedImageJobs++
	if entry.CompletedImageJobs >= entry.TotalImageJobs {
		entry.ImageCompleted = true
	}

	becameTerminal := t.reevaluateLocked(entry)
	t.mu.Unlock()

	if becameTerminal {
		t.runTerminalProtocol(ctx, entry, bc)
	}
}

// MarkIngredientLineCompleted idempotently records completion of the
// ingredient line identified by (block, line).
func (t *Tracker) MarkIngredientLineCompleted(ctx context.Context, noteID string, block, line int, bc Broadcaster) {
	key := fmt.Sprintf("%d:%d", block, line)

	t.mu.Lock()

	entry := t.getOrAutoCreate(noteID)
	entry.completedLines[key] = struct{}{}
	if entry.TotalIngredientLines > 0 && len(entry.completedLines) >= entry.TotalIngredientLines {
		entry.IngredientCompleted = true
	}

	becameTerminal := t.reevaluateLocked(entry)
	t.mu.Unlock()

	if becameTerminal {
		t.runTerminalProtocol(ctx, entry, bc)
	}
}

// MarkWorkerCompleted records completion of a whole worker stage.
func (t *Tracker) MarkWorkerCompleted(ctx context.Context, noteID string, kind WorkerKind, bc Broadcaster) {
	t.mu.Lock()

	entry := t.getOrAutoCreate(noteID)
	switch kind {
	case WorkerNote:
		entry.NoteCompleted = true
	case WorkerInstruction:
		entry.InstructionCompleted = true
	case WorkerIngredient:
		if entry.TotalIngredientLines == 0 {
			entry.IngredientCompleted = true
		}
	case WorkerImage:
		if entry.TotalImageJobs == 0 {
			entry.ImageCompleted = true
		}
	}

	becameTerminal := t.reevaluateLocked(entry)
	t.mu.Unlock()

	if becameTerminal {
		t.runTerminalProtocol(ctx, entry, bc)
	}
}

// reevaluateLocked re-checks the terminal condition and flips
// AllCompleted exactly once. Must be called while holding t.mu.
// Returns true the first time the entry becomes terminal.
func (t *Tracker) reevaluateLocked(entry *NoteCompletionStatus) bool {
	if entry.AllCompleted {
		return false
	}

	imagesDrained := entry.TotalImageJobs == 0 || entry.CompletedImageJobs >= entry.TotalImageJobs
	linesDrained := entry.TotalIngredientLines == 0 || len(entry.completedLines) >= entry.TotalIngredientLines

	allFlags := entry.NoteCompleted && entry.InstructionCompleted && entry.IngredientCompleted && entry.ImageCompleted

	if allFlags && imagesDrained && linesDrained {
		entry.AllCompleted = true
		return true
	}
	return false
}

// runTerminalProtocol performs the best-effort update+broadcast
// outside the tracker lock, then unconditionally cleans the entry.
func (t *Tracker) runTerminalProtocol(ctx context.Context, entry *NoteCompletionStatus, bc Broadcaster) {
	defer t.Cleanup(entry.NoteID)

	if t.updater != nil {
		if err := t.updater.MarkNoteCompleted(ctx, entry.NoteID); err != nil && t.logger != nil {
			t.logger.Warn("failed to update note status on completion",
				"note_id", entry.NoteID, "error", err)
		}
	}

	if bc == nil {
		return
	}

	event := TerminalEvent{
		NoteID:               entry.NoteID,
		ImportID:             entry.ImportID,
		Context:              "note_completion",
		TotalImageJobs:       entry.TotalImageJobs,
		CompletedImageJobs:   entry.CompletedImageJobs,
		TotalIngredientLines: entry.TotalIngredientLines,
		CompletedLines:       entry.CompletedIngredientLines(),
	}

	if err := bc.Broadcast(ctx, event); err != nil && t.logger != nil {
		t.logger.Warn("failed to broadcast terminal completion",
			"note_id", entry.NoteID, "error", err)
	}
}

// GetNoteCompletionStatus returns a snapshot, or ok=false if absent.
func (t *Tracker) GetNoteCompletionStatus(noteID string) (NoteCompletionStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[noteID]
	if !ok {
		return NoteCompletionStatus{}, false
	}
	return *entry, true
}

// GetIngredientCompletionStatus returns the derived ingredient-line
// progress view; an absent entry yields {0, 0, "0/0", false}.
func (t *Tracker) GetIngredientCompletionStatus(noteID string) IngredientStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[noteID]
	if !ok {
		return IngredientStatus{Fraction: "0/0"}
	}

	completed := len(entry.completedLines)
	total := entry.TotalIngredientLines
	return IngredientStatus{
		Completed:  completed,
		Total:      total,
		Fraction:   fmt.Sprintf("%d/%d", completed, total),
		IsComplete: total > 0 && completed >= total,
	}
}

// Cleanup removes the entry for noteID, if present. Idempotent.
func (t *Tracker) Cleanup(noteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, noteID)
}

// StaleNoteIDs returns the ids of entries older than maxAge that
// never reached AllCompleted — candidates for the housekeeping sweep.
func (t *Tracker) StaleNoteIDs(maxAge time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var stale []string
	for id, entry := range t.entries {
		if !entry.AllCompleted && now.Sub(entry.CreatedAt) > maxAge {
			stale = append(stale, id)
		}
	}
	return stale
}
