// Package worker связывает одну очередь брокера с упорядоченным
// списком действий через internal/pipeline.Executor: BaseWorker
// декодирует задание, прогоняет цепочку действий, публикует события
// статуса и фиксирует метрики.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/notepipe/internal/broker"
	"github.com/shaiso/notepipe/internal/pipeline"
	"github.com/shaiso/notepipe/internal/telemetry"
)

// jobEnvelope is the minimal shape every queue payload carries:
// noteId (may be absent on the very first enqueue), importId, and
// whatever fields the specific queue adds on top (decoded separately
// by the actions that need them).
type jobEnvelope struct {
	NoteID   string         `json:"noteId"`
	ImportID string         `json:"importId"`
	Fields   map[string]any `json:"fields"`
}

// Config — конфигурация одного BaseWorker.
type Config struct {
	Queue       broker.Queue
	Conn        *broker.Connection
	Executor    *pipeline.Executor
	Deps        *pipeline.Dependencies
	Concurrency int
	Prefetch    int
	Logger      *slog.Logger
	Metrics     *telemetry.Collector

	// Publisher enables per-job retry-with-backoff on handler failure;
	// without it a handler failure dead-letters immediately.
	Publisher   *broker.Publisher
	RetryConfig broker.RetryConfig
}

// BaseWorker binds one queue to an ordered action list.
type BaseWorker struct {
	queue       broker.Queue
	consumer    *broker.Consumer
	executor    *pipeline.Executor
	deps        *pipeline.Dependencies
	concurrency int
	logger      *slog.Logger
	metrics     *telemetry.Collector

	sem chan struct{}
	wg  sync.WaitGroup
}

// New создаёт BaseWorker, привязанный к одной очереди.
func New(cfg Config) *BaseWorker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithQueue(logger, string(cfg.Queue))

	w := &BaseWorker{
		queue:       cfg.Queue,
		executor:    cfg.Executor,
		deps:        cfg.Deps,
		concurrency: concurrency,
		logger:      logger,
		metrics:     cfg.Metrics,
		sem:         make(chan struct{}, concurrency),
	}

	w.consumer = broker.NewConsumer(cfg.Conn, logger, broker.ConsumerConfig{
		Queue:       cfg.Queue,
		Handler:     w.handle,
		Prefetch:    cfg.Prefetch,
		Publisher:   cfg.Publisher,
		RetryConfig: cfg.RetryConfig,
	})

	return w
}

// Start запускает consumer в фоновой горутине; блокирует не дольше,
// чем требуется для её запуска.
func (w *BaseWorker) Start(ctx context.Context) {
	if w.metrics != nil {
		w.metrics.SetWorkerUp(string(w.queue), true)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("consumer stopped with error", "error", err)
		}
		if w.metrics != nil {
			w.metrics.SetWorkerUp(string(w.queue), false)
		}
	}()
}

// Stop останавливает consumer и ждёт завершения всех обрабатываемых
// заданий.
func (w *BaseWorker) Stop() {
	w.consumer.Stop()
	w.wg.Wait()
}

// handle декодирует один Delivery и прогоняет его через цепочку
// действий, ограничивая параллелизм Concurrency.
func (w *BaseWorker) handle(ctx context.Context, d *broker.Delivery) error {
	w.sem <- struct{}{}
	defer func() { <-w.sem }()

	env, err := broker.DecodePayload[jobEnvelope](&d.Envelope)
	if err != nil {
		return fmt.Errorf("decode job envelope: %w", err)
	}

	noteID := d.Envelope.NoteID
	if noteID == "" {
		noteID = env.NoteID
	}
	importID := d.Envelope.ImportID
	if importID == "" {
		importID = env.ImportID
	}

	data := pipeline.NewPipelineData(noteID, importID)
	for k, v := range env.Fields {
		data = data.With(k, v)
	}

	actx := pipeline.ActionContext{
		JobID:         d.Envelope.ID,
		QueueName:     string(w.queue),
		WorkerName:    string(w.queue),
		StartTime:     time.Now(),
		AttemptNumber: d.Envelope.Attempt,
	}

	start := time.Now()
	_, err = w.executor.Run(ctx, data, w.deps, actx)
	elapsed := time.Since(start).Seconds()

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	if w.metrics != nil {
		w.metrics.ObserveJobDuration(string(w.queue), outcome, elapsed)
	}

	if err != nil {
		if w.deps.Broadcaster != nil {
			_ = w.deps.Broadcaster.Broadcast(ctx, failureEvent(noteID, importID, string(w.queue), err))
		}
		return err
	}
	return nil
}
