package categorization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/notepipe/internal/completion"
)

type fakeScheduler struct {
	calls int
	err   error
}

func (f *fakeScheduler) ScheduleCategorizationJob(ctx context.Context, noteID, importID, jobKey string) error {
	f.calls++
	return f.err
}

type emptyLookup struct{}

func (emptyLookup) GetJobStatus(ctx context.Context, noteID string) (JobStatus, error) {
	return JobStatus{}, nil
}

type terminalLookup struct {
	status JobStatus
}

func (t terminalLookup) GetJobStatus(ctx context.Context, noteID string) (JobStatus, error) {
	return t.status, nil
}

func noSleep(time.Duration) {}

func TestWaitNoNoteIDReturnsImmediately(t *testing.T) {
	tr := completion.NewTracker(nil, nil)
	c := NewCoordinator(tr, &fakeScheduler{}, emptyLookup{}, Config{}, nil)
	c.sleep = noSleep

	result := c.Wait(context.Background(), "", "", "")
	if result.Success {
		t.Error("expected success=false for empty noteId")
	}
}

func TestWaitExhaustsRetriesWhenNeverComplete(t *testing.T) {
	tr := completion.NewTracker(nil, nil)
	tr.Initialize("N1", "I1")
	tr.SetTotalIngredientLines("N1", 3) // never reaches 3

	c := NewCoordinator(tr, &fakeScheduler{}, emptyLookup{}, Config{MaxRetries: 5}, nil)
	c.sleep = noSleep

	result := c.Wait(context.Background(), "N1", "I1", "job-1")
	if result.Success {
		t.Error("expected success=false")
	}
	if result.RetryCount != 5 {
		t.Errorf("expected retryCount=5, got %d", result.RetryCount)
	}
	if result.MaxRetries != 5 {
		t.Errorf("expected maxRetries=5, got %d", result.MaxRetries)
	}
}

func TestWaitSchedulesThenSucceedsOnTerminalJob(t *testing.T) {
	tr := completion.NewTracker(nil, nil)
	tr.Initialize("N2", "I2")
	tr.SetTotalIngredientLines("N2", 1)
	tr.MarkIngredientLineCompleted(context.Background(), "N2", 1, 1, nil)

	sched := &fakeScheduler{}
	lookup := terminalLookup{status: JobStatus{Terminal: true, HasCategorization: true, CategoriesCount: 2}}

	c := NewCoordinator(tr, sched, lookup, Config{MaxRetries: 5}, nil)
	c.sleep = noSleep

	result := c.Wait(context.Background(), "N2", "I2", "job-2")
	if !result.Success {
		t.Error("expected success=true")
	}
	if !result.CategorizationScheduled {
		t.Error("expected categorizationScheduled=true")
	}
	if sched.calls != 1 {
		t.Errorf("expected exactly one schedule call, got %d", sched.calls)
	}
	if result.CategoriesCount != 2 {
		t.Errorf("expected categoriesCount=2, got %d", result.CategoriesCount)
	}
}

func TestWaitContextCancelledExitsEarly(t *testing.T) {
	tr := completion.NewTracker(nil, nil)
	tr.Initialize("N3", "I3")
	tr.SetTotalIngredientLines("N3", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(tr, &fakeScheduler{}, emptyLookup{}, Config{MaxRetries: 30}, nil)
	c.sleep = noSleep

	result := c.Wait(ctx, "N3", "I3", "job-3")
	if result.Success {
		t.Error("expected success=false on cancellation")
	}
	if result.RetryCount != 0 {
		t.Errorf("expected to exit on the very first iteration, got retryCount=%d", result.RetryCount)
	}
}

func TestWaitResetsScheduledOnLookupError(t *testing.T) {
	tr := completion.NewTracker(nil, nil)
	tr.Initialize("N4", "I4")
	tr.SetTotalIngredientLines("N4", 1)
	tr.MarkIngredientLineCompleted(context.Background(), "N4", 1, 1, nil)

	sched := &fakeScheduler{}
	lookup := &flakyLookup{failTimes: 2, final: JobStatus{Terminal: true, HasTags: true}}

	c := NewCoordinator(tr, sched, lookup, Config{MaxRetries: 10}, nil)
	c.sleep = noSleep

	result := c.Wait(context.Background(), "N4", "I4", "job-4")
	if !result.Success {
		t.Error("expected eventual success after transient lookup failures")
	}
	if sched.calls < 2 {
		t.Errorf("expected scheduler to be invoked again after a lookup failure, got %d calls", sched.calls)
	}
}

type flakyLookup struct {
	failTimes int
	final     JobStatus
}

func (f *flakyLookup) GetJobStatus(ctx context.Context, noteID string) (JobStatus, error) {
	if f.failTimes > 0 {
		f.failTimes--
		return JobStatus{}, errors.New("transient db error")
	}
	return f.final, nil
}
