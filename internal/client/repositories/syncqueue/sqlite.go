package syncqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.SyncQueueEntry) (int64, error) {
	if e.Status == "" {
		e.Status = models.QueueStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (collection, record_id, payload, attempts, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Collection, e.RecordID, string(e.Payload), e.Attempts, e.Status,
		e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue sync entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue id: %w", err)
	}
	e.ID = id
	return id, nil
}

func (r *SQLiteRepository) Pending(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return r.selectEntries(ctx, `
		SELECT id, collection, record_id, payload, attempts, status, created_at
		FROM sync_queue WHERE status = ? ORDER BY id`, models.QueueStatusPending)
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return r.selectEntries(ctx, `
		SELECT id, collection, record_id, payload, attempts, status, created_at
		FROM sync_queue ORDER BY id`)
}

func (r *SQLiteRepository) selectEntries(ctx context.Context, query string, args ...any) ([]models.SyncQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []models.SyncQueueEntry
	for rows.Next() {
		var (
			e         models.SyncQueueEntry
			payload   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Collection, &e.RecordID, &payload,
			&e.Attempts, &e.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		e.Payload = []byte(payload)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid queue timestamp: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE sync_queue SET status = ? WHERE id = ?`
	if status == models.QueueStatusInflight {
		query = `UPDATE sync_queue SET status = ?, attempts = attempts + 1 WHERE id = ?`
	}
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update queue entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to remove queue entries: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.QueueStatusPending)
}

func (r *SQLiteRepository) CountFailed(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.QueueStatusFailed)
}

func (r *SQLiteRepository) countByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s entries: %w", status, err)
	}
	return n, nil
}
