// Package categorization связывает завершение fan-out строк
// ингредиентов со стадией категоризации без DAG-движка: ограниченный
// цикл опроса, планирующий задание категоризации (повторно — после
// сбоя проверки его статуса) и ждущий его терминального статуса.
package categorization

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/notepipe/internal/completion"
)

const (
	defaultMaxRetries  = 30
	defaultRetryDelay  = 1000 * time.Millisecond
	defaultLogThrottle = 5000 * time.Millisecond
)

// Config — параметры координатора.
type Config struct {
	MaxRetries    int
	RetryDelay    time.Duration
	LogThrottleMs time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.LogThrottleMs <= 0 {
		c.LogThrottleMs = defaultLogThrottle
	}
	return c
}

// Scheduler schedules the categorization job once ingredient fan-out
// has drained.
type Scheduler interface {
	ScheduleCategorizationJob(ctx context.Context, noteID, importID, jobKey string) error
}

// JobStatus reports the outcome fields the coordinator needs from the
// categorization job store.
type JobStatus struct {
	Terminal         bool
	CategoriesCount  int
	TagsCount        int
	HasCategorization bool
	HasTags          bool
}

// JobLookup queries the external job/category/tag store.
type JobLookup interface {
	GetJobStatus(ctx context.Context, noteID string) (JobStatus, error)
}

// Result — the shape consumed by the calling action.
type Result struct {
	Success                 bool
	CategorizationScheduled bool
	RetryCount              int
	MaxRetries              int
	HasCategorization       bool
	HasTags                 bool
	CategoriesCount         int
	TagsCount               int
}

// Coordinator runs the bounded wait-for-categorization loop.
type Coordinator struct {
	tracker   *completion.Tracker
	scheduler Scheduler
	lookup    JobLookup
	cfg       Config
	logger    *slog.Logger
	sleep     func(time.Duration)
}

// NewCoordinator wires a Coordinator. logger may be nil.
func NewCoordinator(tracker *completion.Tracker, scheduler Scheduler, lookup JobLookup, cfg Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		tracker:   tracker,
		scheduler: scheduler,
		lookup:    lookup,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Wait runs the bounded loop for a single note/import pair. jobKey
// disambiguates concurrent scheduling attempts (idempotency key
// passed through to the scheduler).
func (c *Coordinator) Wait(ctx context.Context, noteID, importID, jobKey string) Result {
	if noteID == "" {
		return Result{Success: false, MaxRetries: c.cfg.MaxRetries}
	}

	scheduled := false
	var lastLog time.Time

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return Result{Success: false, CategorizationScheduled: scheduled, RetryCount: attempt, MaxRetries: c.cfg.MaxRetries}
		default:
		}

		if !scheduled {
			ingredients := c.tracker.GetIngredientCompletionStatus(noteID)
			if ingredients.IsComplete {
				if err := c.scheduler.ScheduleCategorizationJob(ctx, noteID, importID, jobKey); err != nil {
					if c.logger != nil {
						c.logger.Warn("failed to schedule categorization job, will retry",
							"note_id", noteID, "error", err)
					}
				} else {
					scheduled = true
				}
			}
		} else {
			status, err := c.lookup.GetJobStatus(ctx, noteID)
			if err != nil {
				// Transient DB failure: force a reattempt at scheduling
				// rather than waiting indefinitely on a stuck lookup.
				scheduled = false
				if c.logger != nil {
					c.logger.Warn("categorization job lookup failed, rescheduling",
						"note_id", noteID, "error", err)
				}
			} else if status.Terminal {
				return Result{
					Success:                 status.HasCategorization || status.HasTags,
					CategorizationScheduled: true,
					RetryCount:              attempt,
					MaxRetries:              c.cfg.MaxRetries,
					HasCategorization:       status.HasCategorization,
					HasTags:                 status.HasTags,
					CategoriesCount:         status.CategoriesCount,
					TagsCount:               status.TagsCount,
				}
			}
		}

		if c.logger != nil && time.Since(lastLog) >= c.cfg.LogThrottleMs {
			c.logger.Info("still waiting for categorization", "note_id", noteID, "attempt", attempt+1)
			lastLog = time.Now()
		}

		c.sleep(c.cfg.RetryDelay)
	}

	return Result{
		Success:                 false,
		CategorizationScheduled: scheduled,
		RetryCount:              c.cfg.MaxRetries,
		MaxRetries:              c.cfg.MaxRetries,
	}
}
