package pattern

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestComputeCode(t *testing.T) {
	a := []PatternRule{{RuleID: "r1", RuleNumber: 1}, {RuleID: "r2", RuleNumber: 2}}
	b := []PatternRule{{RuleID: "r1", RuleNumber: 1}, {RuleID: "r2", RuleNumber: 2}}
	c := []PatternRule{{RuleID: "r2", RuleNumber: 1}, {RuleID: "r1", RuleNumber: 2}}

	if ComputeCode(a) != ComputeCode(b) {
		t.Error("expected identical sequences to produce identical codes")
	}
	if ComputeCode(a) == ComputeCode(c) {
		t.Error("expected different sequences to produce different codes")
	}
	if got, want := ComputeCode(a), "1:r1_2:r2"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*UniqueLinePattern
	raceFor int // number of UpsertOnce calls to simulate as a race before succeeding
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*UniqueLinePattern)}
}

func (m *memStore) UpsertOnce(ctx context.Context, code string, ruleIDs []string, exampleLine string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.raceFor > 0 {
		m.raceFor--
		return "", true, errors.New("unique constraint violation")
	}

	if row, ok := m.rows[code]; ok {
		row.OccurrenceCount++
		if exampleLine != "" && exampleLine != row.ExampleLine {
			row.ExampleLine = exampleLine
		}
		return row.ID, false, nil
	}

	row := &UniqueLinePattern{ID: code, Code: code, RuleIDs: ruleIDs, ExampleLine: exampleLine, OccurrenceCount: 1}
	m.rows[code] = row
	return row.ID, false, nil
}

func (m *memStore) LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error {
	return nil
}

func (m *memStore) ListByOccurrence(ctx context.Context) ([]UniqueLinePattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UniqueLinePattern, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, *r)
	}
	return out, nil
}

func TestTrackPatternRetriesOnRace(t *testing.T) {
	store := newMemStore()
	store.raceFor = 2
	tracker := NewTracker(store, Config{MaxAttempts: 3}, nil)

	rules := []PatternRule{{RuleID: "r1", RuleNumber: 1}, {RuleID: "r2", RuleNumber: 2}}
	id, err := tracker.TrackPattern(context.Background(), rules, "2 cups flour", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected a pattern id")
	}
}

func TestTrackPatternExhaustsRetries(t *testing.T) {
	store := newMemStore()
	store.raceFor = 10
	tracker := NewTracker(store, Config{MaxAttempts: 3}, nil)

	rules := []PatternRule{{RuleID: "r1", RuleNumber: 1}}
	_, err := tracker.TrackPattern(context.Background(), rules, "", "")
	if !errors.Is(err, ErrRaceExhausted) {
		t.Errorf("expected ErrRaceExhausted, got %v", err)
	}
}

func TestTrackPatternConcurrentSameCodeAccumulates(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store, Config{}, nil)
	rules := []PatternRule{{RuleID: "r1", RuleNumber: 1}, {RuleID: "r2", RuleNumber: 2}}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.TrackPattern(context.Background(), rules, "2 cups flour", ""); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rows, err := tracker.GetPatterns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	if rows[0].OccurrenceCount != 2 {
		t.Errorf("expected occurrenceCount=2, got %d", rows[0].OccurrenceCount)
	}
}

func TestTrackPatternUpdatesExampleLineOnRepeat(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store, Config{}, nil)
	rules := []PatternRule{{RuleID: "r1", RuleNumber: 1}, {RuleID: "r2", RuleNumber: 2}}

	if _, err := tracker.TrackPattern(context.Background(), rules, "2 cups flour", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.TrackPattern(context.Background(), rules, "3 cups flour", ""); err != nil {
		t.Fatal(err)
	}

	rows, err := tracker.GetPatterns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	if rows[0].OccurrenceCount != 2 {
		t.Errorf("expected occurrenceCount=2, got %d", rows[0].OccurrenceCount)
	}
	if rows[0].ExampleLine != "3 cups flour" {
		t.Errorf("expected exampleLine to be overwritten by the newer occurrence, got %q", rows[0].ExampleLine)
	}
}
