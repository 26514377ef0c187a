package fanout

import (
	"context"
	"fmt"

	"github.com/shaiso/notepipe/internal/broker"
	"github.com/shaiso/notepipe/internal/categorization"
	"github.com/shaiso/notepipe/internal/repo"
)

// jobStore is the subset of internal/repo.NoteRepo the categorization
// adapters need.
type jobStore interface {
	CreateCategorizationJob(ctx context.Context, noteID, importID, jobKey string) (string, error)
	GetQueueJobByNoteID(ctx context.Context, noteID string) (*repo.QueueJobStatus, error)
	GetNoteCategories(ctx context.Context, noteID string) ([]string, error)
	GetNoteTags(ctx context.Context, noteID string) ([]string, error)
}

// CategorizationScheduler implements categorization.Scheduler: it
// inserts a PENDING job row and enqueues the categorization-stage job.
type CategorizationScheduler struct {
	publisher *broker.Publisher
	store     jobStore
}

// NewCategorizationScheduler wires a CategorizationScheduler.
func NewCategorizationScheduler(publisher *broker.Publisher, store jobStore) *CategorizationScheduler {
	return &CategorizationScheduler{publisher: publisher, store: store}
}

func (s *CategorizationScheduler) ScheduleCategorizationJob(ctx context.Context, noteID, importID, jobKey string) error {
	if _, err := s.store.CreateCategorizationJob(ctx, noteID, importID, jobKey); err != nil {
		return fmt.Errorf("create categorization job row: %w", err)
	}

	job := jobPayload{Fields: map[string]any{"jobKey": jobKey}}
	opts := broker.PublishOptions{NoteID: noteID, ImportID: importID}
	if _, err := s.publisher.Enqueue(ctx, broker.QueueCategorization, job, opts); err != nil {
		return fmt.Errorf("enqueue categorization job: %w", err)
	}
	return nil
}

// terminalStatuses are the queue-job states the coordinator treats as
// done waiting, whatever the outcome.
var terminalStatuses = map[string]bool{
	"COMPLETED": true,
	"FAILED":    true,
}

// CategorizationLookup implements categorization.JobLookup.
type CategorizationLookup struct {
	store jobStore
}

// NewCategorizationLookup wires a CategorizationLookup.
func NewCategorizationLookup(store jobStore) *CategorizationLookup {
	return &CategorizationLookup{store: store}
}

func (l *CategorizationLookup) GetJobStatus(ctx context.Context, noteID string) (categorization.JobStatus, error) {
	job, err := l.store.GetQueueJobByNoteID(ctx, noteID)
	if err == repo.ErrNotFound {
		// Row not visible yet — not a failure, just not terminal.
		return categorization.JobStatus{}, nil
	}
	if err != nil {
		return categorization.JobStatus{}, err
	}

	if !terminalStatuses[job.Status] {
		return categorization.JobStatus{}, nil
	}

	categories, err := l.store.GetNoteCategories(ctx, noteID)
	if err != nil {
		return categorization.JobStatus{}, err
	}
	tags, err := l.store.GetNoteTags(ctx, noteID)
	if err != nil {
		return categorization.JobStatus{}, err
	}

	return categorization.JobStatus{
		Terminal:          true,
		CategoriesCount:   len(categories),
		TagsCount:         len(tags),
		HasCategorization: len(categories) > 0,
		HasTags:           len(tags) > 0,
	}, nil
}
