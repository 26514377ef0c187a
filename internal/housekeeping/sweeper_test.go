package housekeeping

import (
	"testing"
	"time"

	"github.com/shaiso/notepipe/internal/completion"
)

func TestSweepCleansStaleEntriesOnly(t *testing.T) {
	tracker := completion.NewTracker(nil, nil)
	tracker.Initialize("stale-note", "import-1")
	tracker.Initialize("fresh-note", "import-1")

	s := NewSweeper(tracker, nil, nil, Config{MaxAge: time.Millisecond}, nil)

	time.Sleep(5 * time.Millisecond)
	tracker.Initialize("fresh-note", "import-1")

	s.sweep(nil)

	if _, ok := tracker.GetNoteCompletionStatus("stale-note"); ok {
		t.Errorf("expected stale-note to be cleaned up")
	}
	if _, ok := tracker.GetNoteCompletionStatus("fresh-note"); !ok {
		t.Errorf("expected fresh-note to remain tracked")
	}
}

func TestSweepNoopWhenNothingStale(t *testing.T) {
	tracker := completion.NewTracker(nil, nil)
	tracker.Initialize("fresh-note", "import-1")

	s := NewSweeper(tracker, nil, nil, Config{MaxAge: time.Hour}, nil)
	s.sweep(nil)

	if _, ok := tracker.GetNoteCompletionStatus("fresh-note"); !ok {
		t.Errorf("expected fresh-note to remain tracked")
	}
}
