// notepipe-worker executes one queue's action pipeline.
//
// Worker:
//   - Consumes one queue (selected via WORKER_QUEUE)
//   - Runs the queue's action chain through internal/pipeline.Executor
//   - Retries via internal/middleware, dead-letters past max attempts
//   - Reports /healthz + /metrics
//
// Workers scale horizontally: run one process per queue, as many
// replicas per queue as concurrency demands.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/notepipe/internal/actions"
	"github.com/shaiso/notepipe/internal/broker"
	"github.com/shaiso/notepipe/internal/categorization"
	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/fanout"
	"github.com/shaiso/notepipe/internal/housekeeping"
	"github.com/shaiso/notepipe/internal/middleware"
	"github.com/shaiso/notepipe/internal/pattern"
	"github.com/shaiso/notepipe/internal/pipeline"
	"github.com/shaiso/notepipe/internal/repo"
	"github.com/shaiso/notepipe/internal/status"
	"github.com/shaiso/notepipe/internal/telemetry"
	"github.com/shaiso/notepipe/internal/worker"
)

// chains maps each queue to its ordered action list. Queues whose
// business logic is entirely out of this runtime's scope (source,
// categorization) still get a worker so jobs drain instead of piling
// up — their chain is a single no_op.
var chains = map[broker.Queue][]string{
	broker.QueueNote:            {"parse_html", "clean_html", "save_note", "schedule_categorization", "wait_for_categorization", "track_completion"},
	broker.QueueIngredient:      {"process_ingredient_line", "track_pattern", "save_ingredient_line"},
	broker.QueueInstruction:     {"no_op", "track_completion"},
	broker.QueueImage:           {"process_image", "save_image"},
	broker.QueueCategorization:  {"no_op"},
	broker.QueueSource:          {"no_op"},
	broker.QueuePatternTracking: {"track_pattern"},
}

var workerKinds = map[broker.Queue]completion.WorkerKind{
	broker.QueueNote:        completion.WorkerNote,
	broker.QueueInstruction: completion.WorkerInstruction,
}

func defaultConcurrency(q broker.Queue) int {
	switch q {
	case broker.QueueIngredient, broker.QueueInstruction:
		return 3
	default:
		return 1
	}
}

func main() {
	logger := telemetry.SetupLogger()

	queueName := os.Getenv("WORKER_QUEUE")
	if queueName == "" {
		queueName = string(broker.QueueNote)
	}
	queue := broker.Queue(queueName)
	chain, ok := chains[queue]
	if !ok {
		logger.Error("unknown WORKER_QUEUE", "queue", queueName)
		os.Exit(1)
	}
	logger = telemetry.WithQueue(logger, queueName)
	logger.Info("starting notepipe-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	noteRepo := repo.NewNoteRepo(pool)
	patternRepo := repo.NewPatternRepo(pool)

	broadcaster := status.NewBroadcaster(logger)
	metrics := telemetry.NewCollector()
	runtime := pipeline.NewRuntime(noteRepo)
	patternTracker := pattern.NewTracker(patternRepo, pattern.Config{}, logger)

	var mqConn *broker.Connection
	var publisher *broker.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = broker.DefaultURL()
	}

	mqConn, err = broker.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running without a queue consumer", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := broker.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = broker.NewPublisher(mqConn, logger)
	}

	var coordinator *categorization.Coordinator
	var fanoutPublisher *fanout.Publisher
	if publisher != nil {
		scheduler := fanout.NewCategorizationScheduler(publisher, noteRepo)
		lookup := fanout.NewCategorizationLookup(noteRepo)
		coordinator = categorization.NewCoordinator(runtime.Completion, scheduler, lookup, categorization.Config{}, logger)
		fanoutPublisher = fanout.New(publisher, runtime.Completion)
	}

	services := &actions.Services{
		Notes:       noteRepo,
		Completion:  runtime.Completion,
		Patterns:    patternTracker,
		Categorizer: coordinator,
	}
	if fanoutPublisher != nil {
		services.Fanout = fanoutPublisher
	}

	deps := &pipeline.Dependencies{
		Logger:       logger,
		Broadcaster:  broadcaster,
		Services:     services,
		ErrorHandler: pipeline.NewLoggingErrorHandler(logger),
		DB:           pool,
	}

	reg := pipeline.NewRegistry()
	actions.Register(reg, workerKinds[queue])

	builtActions, err := reg.BuildAll(chain, deps)
	if err != nil {
		logger.Error("failed to build action chain", "error", err)
		os.Exit(1)
	}
	for i, a := range builtActions {
		builtActions[i] = middleware.Wrap(a, runtime.Breakers)
	}
	executor := pipeline.NewExecutor(builtActions...).WithMetrics(metrics)

	concurrency := defaultConcurrency(queue)
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}

	var w *worker.BaseWorker
	if mqConn != nil {
		w = worker.New(worker.Config{
			Queue:       queue,
			Conn:        mqConn,
			Executor:    executor,
			Deps:        deps,
			Concurrency: concurrency,
			Logger:      logger,
			Metrics:     metrics,
			Publisher:   publisher,
		})
		w.Start(ctx)
	}

	var sweeper *housekeeping.Sweeper
	if queue == broker.QueueNote {
		sweeper = housekeeping.NewSweeper(runtime.Completion, broadcaster, metrics, housekeeping.Config{}, logger)
		if err := sweeper.Start(ctx); err != nil {
			logger.Warn("failed to start housekeeping sweep", "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	srv := &http.Server{Addr: port, Handler: mux}
	go func() {
		logger.Info("listening", "addr", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if w != nil {
		w.Stop()
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	logger.Info("notepipe-worker stopped")
}
