package worker

import (
	"github.com/shaiso/notepipe/internal/pipeline"
	"github.com/shaiso/notepipe/internal/status"
)

// failureEvent builds the FAILED status event emitted when a job's
// action chain returns an error, tagging the error kind in metadata
// per the error-handling design's classification scheme.
func failureEvent(noteID, importID, queue string, err error) status.Event {
	return status.Event{
		ImportID: importID,
		NoteID:   noteID,
		Status:   status.StatusFailed,
		Message:  err.Error(),
		Context:  queue,
		Metadata: map[string]any{
			"errorKind": string(pipeline.Classify(err)),
		},
	}
}
