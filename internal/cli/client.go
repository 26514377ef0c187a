package cli

import (
	"context"

	"github.com/shaiso/notepipe/internal/pattern"
	"github.com/shaiso/notepipe/internal/repo"
)

// Client is the operator CLI's read-only view of pipeline state. It
// talks to Postgres directly: the pipeline has no HTTP API of its own.
type Client struct {
	Patterns *repo.PatternRepo
	Notes    *repo.NoteRepo
}

// NewClient wires a Client over an already-open pool-backed repo pair.
func NewClient(patterns *repo.PatternRepo, notes *repo.NoteRepo) *Client {
	return &Client{Patterns: patterns, Notes: notes}
}

// TopPatterns returns patterns ordered by occurrence count, descending.
func (c *Client) TopPatterns(ctx context.Context) ([]pattern.UniqueLinePattern, error) {
	return c.Patterns.ListByOccurrence(ctx)
}

// NoteStatus bundles a note's persisted status with its most recent
// categorization job, if any.
type NoteStatus struct {
	NoteID    string
	Status    string
	JobStatus string
	JobError  string
	HasJob    bool
}

// NoteStatus fetches a note's status and categorization job state.
func (c *Client) NoteStatus(ctx context.Context, noteID string) (*NoteStatus, error) {
	status, err := c.Notes.GetNoteStatus(ctx, noteID)
	if err != nil {
		return nil, err
	}

	out := &NoteStatus{NoteID: noteID, Status: status}

	job, err := c.Notes.GetQueueJobByNoteID(ctx, noteID)
	if err == repo.ErrNotFound {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.HasJob = true
	out.JobStatus = job.Status
	out.JobError = job.ErrorMsg
	return out, nil
}
