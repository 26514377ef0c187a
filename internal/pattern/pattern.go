// Package pattern поддерживает уникальный upsert последовательностей
// правил разбора (PatternRule) в строки UniqueLinePattern с безопасным
// при конкуренции повтором.
package pattern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// PatternRule — неизменяемое правило в последовательности разбора.
type PatternRule struct {
	RuleID     string
	RuleNumber int
}

// UniqueLinePattern — строка уникальной последовательности правил.
type UniqueLinePattern struct {
	ID              string
	Code            string
	RuleIDs         []string
	ExampleLine     string
	OccurrenceCount int
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
}

// ComputeCode derives the deterministic pattern code from an ordered
// rule sequence: "<ruleNumber>:<ruleId>" joined by "_" between
// positions.
func ComputeCode(rules []PatternRule) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = fmt.Sprintf("%d:%s", r.RuleNumber, r.RuleID)
	}
	return strings.Join(parts, "_")
}

// ErrRaceExhausted is returned when the upsert still fails after all
// retry attempts are spent.
var ErrRaceExhausted = errors.New("pattern upsert: contention not resolved after retries")

// Store is the persistence boundary the tracker retries against.
// Implemented by internal/repo.PatternRepo.
type Store interface {
	// UpsertOnce performs one attempt of the upsert-by-code
	// transaction. It returns (patternID, raced, err): raced=true
	// signals a contention error the tracker should retry.
	UpsertOnce(ctx context.Context, code string, ruleIDs []string, exampleLine string) (id string, raced bool, err error)

	// LinkIngredientLine advisorily associates a pattern with the
	// ingredient line that exemplified it. Failure is logged by the
	// tracker and never fails the overall call.
	LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error

	// ListByOccurrence returns all patterns ordered by
	// occurrenceCount descending.
	ListByOccurrence(ctx context.Context) ([]UniqueLinePattern, error)
}

// Tracker drives the retry-on-contention discipline around Store.
type Tracker struct {
	store       Store
	maxAttempts int
	logger      *slog.Logger
}

// Config — параметры трекера шаблонов.
type Config struct {
	MaxAttempts int // default 3
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store Store, cfg Config, logger *slog.Logger) *Tracker {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Tracker{store: store, maxAttempts: maxAttempts, logger: logger}
}

// TrackPattern composes the pattern code from rules, upserts it with
// retry on unique-constraint races, and — if ingredientLineID is
// provided — advisorially links the line to the pattern.
func (t *Tracker) TrackPattern(ctx context.Context, rules []PatternRule, exampleLine, ingredientLineID string) (string, error) {
	ordered := make([]PatternRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RuleNumber < ordered[j].RuleNumber })

	code := ComputeCode(ordered)
	ruleIDs := make([]string, len(ordered))
	for i, r := range ordered {
		ruleIDs[i] = r.RuleID
	}

	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		id, raced, err := t.store.UpsertOnce(ctx, code, ruleIDs, exampleLine)
		if err == nil {
			if ingredientLineID != "" {
				t.linkNonFatal(ctx, ingredientLineID, id)
			}
			return id, nil
		}

		lastErr = err
		if !raced {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", ErrRaceExhausted, lastErr)
}

func (t *Tracker) linkNonFatal(ctx context.Context, ingredientLineID, patternID string) {
	// Failure here is advisory only: the upsert above already
	// returned the authoritative pattern id.
	if err := t.store.LinkIngredientLine(ctx, ingredientLineID, patternID); err != nil && t.logger != nil {
		t.logger.Warn("failed to link ingredient line to pattern",
			"ingredient_line_id", ingredientLineID, "pattern_id", patternID, "error", err)
	}
}

// GetPatterns returns all patterns ordered by occurrenceCount desc.
func (t *Tracker) GetPatterns(ctx context.Context) ([]UniqueLinePattern, error) {
	return t.store.ListByOccurrence(ctx)
}
