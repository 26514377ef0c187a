package completion

import (
	"context"
	"sync"
	"testing"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeUpdater) MarkNoteCompleted(ctx context.Context, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, noteID)
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []TerminalEvent
	fail   bool
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, event TerminalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if f.fail {
		return errFake
	}
	return nil
}

var errFake = &fakeError{}

type fakeError struct{}

func (e *fakeError) Error() string { return "broadcast failed" }

func TestMarkImageJobCompleted(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Initialize("N1", "I1")
	tr.SetTotalImageJobs("N1", 2)

	tr.MarkImageJobCompleted(context.Background(), "N1", nil)
	tr.MarkImageJobCompleted(context.Background(), "N1", nil)

	status, ok := tr.GetNoteCompletionStatus("N1")
	if !ok {
		t.Fatalf("expected entry to still exist")
	}
	if !status.ImageCompleted {
		t.Error("expected imageWorkerCompleted=true")
	}
	if status.CompletedImageJobs != 2 {
		t.Errorf("expected completedImageJobs=2, got %d", status.CompletedImageJobs)
	}
}

func TestTerminalBroadcastFiresOnce(t *testing.T) {
	bc := &fakeBroadcaster{}
	tr := NewTracker(nil, nil)
	tr.Initialize("N2", "I2")

	ctx := context.Background()
	tr.MarkWorkerCompleted(ctx, "N2", WorkerNote, bc)
	tr.MarkWorkerCompleted(ctx, "N2", WorkerInstruction, bc)
	tr.MarkWorkerCompleted(ctx, "N2", WorkerIngredient, bc)
	tr.MarkWorkerCompleted(ctx, "N2", WorkerImage, bc)

	bc.mu.Lock()
	count := len(bc.events)
	bc.mu.Unlock()

	if count != 1 {
		t.Fatalf("expected exactly one terminal broadcast, got %d", count)
	}
	if bc.events[0].Context != "note_completion" {
		t.Errorf("expected context note_completion, got %s", bc.events[0].Context)
	}
	if bc.events[0].NoteID != "N2" {
		t.Errorf("expected noteId N2, got %s", bc.events[0].NoteID)
	}

	if _, ok := tr.GetNoteCompletionStatus("N2"); ok {
		t.Error("expected entry to be cleaned up after terminal broadcast")
	}
}

func TestIngredientLineIdempotent(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Initialize("N3", "I3")
	tr.SetTotalIngredientLines("N3", 3)

	ctx := context.Background()
	tr.MarkIngredientLineCompleted(ctx, "N3", 1, 1, nil)
	tr.MarkIngredientLineCompleted(ctx, "N3", 1, 2, nil)
	tr.MarkIngredientLineCompleted(ctx, "N3", 1, 2, nil) // duplicate
	tr.MarkIngredientLineCompleted(ctx, "N3", 1, 3, nil)

	got := tr.GetIngredientCompletionStatus("N3")
	want := IngredientStatus{Completed: 3, Total: 3, Fraction: "3/3", IsComplete: true}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCleanupAbsentEntryDoesNotPanic(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Cleanup("unknown")
}

func TestAbsentEntryDefaults(t *testing.T) {
	tr := NewTracker(nil, nil)

	if _, ok := tr.GetNoteCompletionStatus("unknown"); ok {
		t.Error("expected absent entry")
	}

	got := tr.GetIngredientCompletionStatus("unknown")
	want := IngredientStatus{Fraction: "0/0"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTerminalBroadcastFailureStillCleansUp(t *testing.T) {
	bc := &fakeBroadcaster{fail: true}
	tr := NewTracker(nil, nil)
	tr.Initialize("N4", "I4")

	ctx := context.Background()
	tr.MarkWorkerCompleted(ctx, "N4", WorkerNote, bc)
	tr.MarkWorkerCompleted(ctx, "N4", WorkerInstruction, bc)
	tr.MarkWorkerCompleted(ctx, "N4", WorkerIngredient, bc)
	tr.MarkWorkerCompleted(ctx, "N4", WorkerImage, bc)

	if _, ok := tr.GetNoteCompletionStatus("N4"); ok {
		t.Error("expected cleanup to happen even though broadcast failed")
	}
}

func TestTerminalFiresExactlyOnceUnderConcurrentMarks(t *testing.T) {
	bc := &fakeBroadcaster{}
	tr := NewTracker(nil, nil)
	tr.Initialize("N5", "I5")

	ctx := context.Background()
	kinds := []WorkerKind{WorkerNote, WorkerInstruction, WorkerIngredient, WorkerImage}

	var wg sync.WaitGroup
	for _, k := range kinds {
		wg.Add(1)
		go func(kind WorkerKind) {
			defer wg.Done()
			tr.MarkWorkerCompleted(ctx, "N5", kind, bc)
		}(k)
	}
	wg.Wait()

	bc.mu.Lock()
	count := len(bc.events)
	bc.mu.Unlock()

	if count != 1 {
		t.Fatalf("expected exactly one terminal broadcast under concurrency, got %d", count)
	}
}
