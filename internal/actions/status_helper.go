package actions

import (
	"github.com/shaiso/notepipe/internal/pipeline"
	"github.com/shaiso/notepipe/internal/status"
)

// statusEvent builds the wire-shape event actions emit through
// deps.Broadcaster; ctx is the caller-supplied context label (for
// example "categorization" or "note_completion").
func statusEvent(data pipeline.PipelineData, eventStatus status.EventStatus, message, ctx string) status.Event {
	return status.Event{
		ImportID: data.ImportID,
		NoteID:   data.NoteID,
		Status:   eventStatus,
		Message:  message,
		Context:  ctx,
	}
}
