package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NoteRepo реализует completion.NoteUpdater и минимальный внешний
// database-коллаборатор, которого ждут wait-for-categorization и
// некоторые действия: updateNote / getNoteCategories / getNoteTags /
// getQueueJobByNoteId.
type NoteRepo struct {
	pool *pgxpool.Pool
}

// NewNoteRepo создаёт новый NoteRepo.
func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

// MarkNoteCompleted реализует completion.NoteUpdater.
func (r *NoteRepo) MarkNoteCompleted(ctx context.Context, noteID string) error {
	return r.updateNoteStatus(ctx, noteID, "COMPLETED")
}

func (r *NoteRepo) updateNoteStatus(ctx context.Context, noteID, status string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE notes SET status = $2, updated_at = $3 WHERE id = $1
	`, noteID, status, time.Now())
	if err != nil {
		return fmt.Errorf("update note status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNote обновляет произвольные поля заметки после завершения
// стадии обработки.
func (r *NoteRepo) UpdateNote(ctx context.Context, noteID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := make([]string, 0, len(fields)+1)
	args := []any{noteID}
	i := 2
	for col, val := range fields {
		set = append(set, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())

	query := "UPDATE notes SET " + joinSet(set) + " WHERE id = $1"
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// GetNoteCategories возвращает категории, назначенные заметке.
func (r *NoteRepo) GetNoteCategories(ctx context.Context, noteID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category FROM note_categories WHERE note_id = $1
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetNoteTags возвращает теги, назначенные заметке.
func (r *NoteRepo) GetNoteTags(ctx context.Context, noteID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tag FROM note_tags WHERE note_id = $1
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// QueueJobStatus — минимальное отражение статуса фонового задания
// категоризации, которое ждёт wait-for-categorization.
type QueueJobStatus struct {
	ID       string
	NoteID   string
	Status   string // PENDING, PROCESSING, COMPLETED, FAILED
	ErrorMsg string
}

// GetNoteStatus returns a note's current status column, used by the
// operator CLI's "notes status" command.
func (r *NoteRepo) GetNoteStatus(ctx context.Context, noteID string) (string, error) {
	var noteStatus string
	err := r.pool.QueryRow(ctx, `SELECT status FROM notes WHERE id = $1`, noteID).Scan(&noteStatus)
	if err == pgx.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get note status: %w", err)
	}
	return noteStatus, nil
}

// CreateCategorizationJob inserts a PENDING categorization_jobs row for
// noteId, identified by jobKey for idempotent re-scheduling.
func (r *NoteRepo) CreateCategorizationJob(ctx context.Context, noteID, importID, jobKey string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categorization_jobs (id, note_id, import_id, job_key, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)
		ON CONFLICT (job_key) DO NOTHING
	`, id, noteID, importID, jobKey, time.Now())
	if err != nil {
		return "", fmt.Errorf("create categorization job: %w", err)
	}
	return id, nil
}

// GetQueueJobByNoteID возвращает последнее задание категоризации для
// noteId, если оно существует.
func (r *NoteRepo) GetQueueJobByNoteID(ctx context.Context, noteID string) (*QueueJobStatus, error) {
	var job QueueJobStatus
	var errMsg *string

	err := r.pool.QueryRow(ctx, `
		SELECT id, note_id, status, error
		FROM categorization_jobs
		WHERE note_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, noteID).Scan(&job.ID, &job.NoteID, &job.Status, &errMsg)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue job: %w", err)
	}
	if errMsg != nil {
		job.ErrorMsg = *errMsg
	}
	return &job, nil
}
