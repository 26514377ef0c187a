package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/notepipe/internal/pattern"
)

// PatternRepo — репозиторий для unique_line_patterns, реализующий
// pattern.Store.
type PatternRepo struct {
	pool *pgxpool.Pool
}

// NewPatternRepo создаёт новый PatternRepo.
func NewPatternRepo(pool *pgxpool.Pool) *PatternRepo {
	return &PatternRepo{pool: pool}
}

// UpsertOnce выполняет одну попытку upsert по code. raced=true сигнализирует
// трекеру о конкурентной вставке той же строки другим воркером — тогда
// нужно повторить чтение вместо возврата ошибки наверх.
func (r *PatternRepo) UpsertOnce(ctx context.Context, code string, ruleIDs []string, exampleLine string) (id string, raced bool, err error) {
	ruleIDsJSON, err := json.Marshal(ruleIDs)
	if err != nil {
		return "", false, fmt.Errorf("marshal rule ids: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingID string
	err = tx.QueryRow(ctx, `SELECT id FROM unique_line_patterns WHERE code = $1 FOR UPDATE`, code).Scan(&existingID)
	if err == nil {
		_, err = tx.Exec(ctx, `
			UPDATE unique_line_patterns
			SET occurrence_count = occurrence_count + 1,
			    last_seen_at = $2,
			    example_line = COALESCE($3, example_line)
			WHERE id = $1
		`, existingID, time.Now(), nullString(exampleLine))
		if err != nil {
			return "", false, fmt.Errorf("bump occurrence: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return "", false, fmt.Errorf("commit tx: %w", err)
		}
		return existingID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("lookup pattern by code: %w", err)
	}

	newID := uuid.NewString()
	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO unique_line_patterns
			(id, code, rule_ids, example_line, occurrence_count, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
	`, newID, code, ruleIDsJSON, nullString(exampleLine), now)
	if err != nil {
		if isUniqueViolation(err) {
			// Another worker inserted the same code between our
			// lookup and our insert; the tracker retries.
			return "", true, err
		}
		return "", false, fmt.Errorf("insert pattern: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return "", true, err
		}
		return "", false, fmt.Errorf("commit tx: %w", err)
	}
	return newID, false, nil
}

// LinkIngredientLine регистрирует связь строки ингредиента с шаблоном.
func (r *PatternRepo) LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingredient_lines SET pattern_id = $2 WHERE id = $1
	`, ingredientLineID, patternID)
	if err != nil {
		return fmt.Errorf("link ingredient line to pattern: %w", err)
	}
	return nil
}

// ListByOccurrence возвращает все шаблоны по убыванию occurrence_count.
func (r *PatternRepo) ListByOccurrence(ctx context.Context) ([]pattern.UniqueLinePattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, rule_ids, example_line, occurrence_count, first_seen_at, last_seen_at
		FROM unique_line_patterns
		ORDER BY occurrence_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	var out []pattern.UniqueLinePattern
	for rows.Next() {
		var p pattern.UniqueLinePattern
		var ruleIDsJSON []byte
		var exampleLine *string

		if err := rows.Scan(&p.ID, &p.Code, &ruleIDsJSON, &exampleLine, &p.OccurrenceCount, &p.FirstSeenAt, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		if ruleIDsJSON != nil {
			if err := json.Unmarshal(ruleIDsJSON, &p.RuleIDs); err != nil {
				return nil, fmt.Errorf("unmarshal rule ids: %w", err)
			}
		}
		if exampleLine != nil {
			p.ExampleLine = *exampleLine
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ pattern.Store = (*PatternRepo)(nil)
