// Package fanout implements the note stage's sibling-enqueue step:
// once a note is parsed and saved, it fans out into one job per
// ingredient line, one instruction batch job, and one job per image,
// priming the completion tracker's counters so the terminal protocol
// knows how many sub-completions to wait for.
package fanout

import (
	"context"
	"fmt"

	"github.com/shaiso/notepipe/internal/broker"
	"github.com/shaiso/notepipe/internal/completion"
)

// jobPayload matches the wire shape worker.BaseWorker decodes
// (noteId/importId redundantly, plus the per-action Fields map);
// this package leaves NoteID/ImportID empty, since the worker takes
// them from the enclosing envelope's own metadata first.
type jobPayload struct {
	NoteID   string         `json:"noteId,omitempty"`
	ImportID string         `json:"importId,omitempty"`
	Fields   map[string]any `json:"fields"`
}

// Publisher fans a saved note out to its sibling queues.
type Publisher struct {
	publisher *broker.Publisher
	tracker   *completion.Tracker
}

// New wires a Publisher around a broker publisher and the completion
// tracker whose counters it primes.
func New(publisher *broker.Publisher, tracker *completion.Tracker) *Publisher {
	return &Publisher{publisher: publisher, tracker: tracker}
}

// EnqueueNoteFanout implements actions.Fanout.
func (p *Publisher) EnqueueNoteFanout(ctx context.Context, noteID, importID string, ingredientLines []string, instructionText string, imageURLs []string) error {
	p.tracker.SetTotalIngredientLines(noteID, len(ingredientLines))
	p.tracker.SetTotalImageJobs(noteID, len(imageURLs))

	opts := broker.PublishOptions{NoteID: noteID, ImportID: importID}

	for i, line := range ingredientLines {
		job := jobPayload{Fields: map[string]any{
			"block":      line,
			"blockIndex": 0,
			"lineIndex":  i,
		}}
		if _, err := p.publisher.Enqueue(ctx, broker.QueueIngredient, job, opts); err != nil {
			return fmt.Errorf("enqueue ingredient line %d: %w", i, err)
		}
	}

	if instructionText != "" {
		job := jobPayload{Fields: map[string]any{"text": instructionText}}
		if _, err := p.publisher.Enqueue(ctx, broker.QueueInstruction, job, opts); err != nil {
			return fmt.Errorf("enqueue instruction batch: %w", err)
		}
	}

	for i, url := range imageURLs {
		job := jobPayload{Fields: map[string]any{
			"sourceUrl":  url,
			"imageIndex": i,
		}}
		if _, err := p.publisher.Enqueue(ctx, broker.QueueImage, job, opts); err != nil {
			return fmt.Errorf("enqueue image %d: %w", i, err)
		}
	}

	return nil
}
