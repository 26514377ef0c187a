// Package housekeeping sweeps completion-tracker entries stuck past a
// crash or a permanently-lost worker: entries that never reached
// AllCompleted and have outlived a configured age are force-cleaned so
// they don't accumulate in memory indefinitely.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/notepipe/internal/completion"
	"github.com/shaiso/notepipe/internal/status"
	"github.com/shaiso/notepipe/internal/telemetry"
)

// Config — параметры уборки.
type Config struct {
	// Schedule — cron-выражение частоты sweep (по умолчанию каждую минуту).
	Schedule string
	// MaxAge — возраст записи, после которого она считается зависшей.
	MaxAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = "@every 1m"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 30 * time.Minute
	}
	return c
}

// Sweeper periodically force-cleans stale completion-tracker entries.
type Sweeper struct {
	tracker     *completion.Tracker
	broadcaster *status.Broadcaster
	metrics     *telemetry.Collector
	cfg         Config
	logger      *slog.Logger
	cron        *cron.Cron
}

// NewSweeper wires a Sweeper around tracker. broadcaster and metrics
// may be nil. Call Start to begin the schedule and Stop to halt it.
func NewSweeper(tracker *completion.Tracker, broadcaster *status.Broadcaster, metrics *telemetry.Collector, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		tracker:     tracker,
		broadcaster: broadcaster,
		metrics:     metrics,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.sweep(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for any running job.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Sweeper) sweep(ctx context.Context) {
	stale := s.tracker.StaleNoteIDs(s.cfg.MaxAge)
	if len(stale) == 0 {
		return
	}

	for _, noteID := range stale {
		entry, _ := s.tracker.GetNoteCompletionStatus(noteID)
		s.tracker.Cleanup(noteID)
		if s.broadcaster != nil {
			_ = s.broadcaster.Broadcast(ctx, status.Event{
				NoteID:   noteID,
				ImportID: entry.ImportID,
				Status:   status.StatusCancelled,
				Message:  "completion entry reaped: stale",
				Context:  "stale",
			})
		}
	}
	if s.metrics != nil {
		s.metrics.IncStaleNotesReaped(len(stale))
	}
	s.logger.Warn("force-cleaned stale completion entries", "count", len(stale), "max_age", s.cfg.MaxAge)
}
