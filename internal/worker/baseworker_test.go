package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shaiso/notepipe/internal/broker"
	"github.com/shaiso/notepipe/internal/pipeline"
)

type recordingAction struct {
	name string
	ran  *[]string
}

func (a recordingAction) Name() string    { return a.name }
func (a recordingAction) Retryable() bool { return false }
func (a recordingAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	*a.ran = append(*a.ran, a.name)
	return data, nil
}

func TestHandleRunsExecutorWithDecodedEnvelope(t *testing.T) {
	var ran []string
	executor := pipeline.NewExecutor(recordingAction{name: "step1", ran: &ran}, recordingAction{name: "step2", ran: &ran})

	w := &BaseWorker{
		queue:    broker.QueueNote,
		executor: executor,
		deps:     &pipeline.Dependencies{},
		sem:      make(chan struct{}, 1),
	}

	payload, _ := json.Marshal(jobEnvelope{NoteID: "N1", ImportID: "I1"})
	env := broker.Envelope{ID: "job-1", NoteID: "N1", ImportID: "I1", Payload: payload}
	d := &broker.Delivery{Envelope: env}

	if err := w.handle(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ran) != 2 || ran[0] != "step1" || ran[1] != "step2" {
		t.Errorf("expected both actions to run in order, got %v", ran)
	}
}
