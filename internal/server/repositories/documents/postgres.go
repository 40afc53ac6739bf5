package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/dbx"
	"github.com/dmitrijs2005/farmledger/internal/server/models"
)

// PostgresRepository implements Repository over a DBTX. Batch atomicity is
// the caller's concern: the documents service runs Upsert calls inside one
// dbx.WithTx transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, d *models.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (user_id, collection, record_id, payload, updated_at, last_synced)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, collection, record_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			last_synced = now()`,
		d.UserID, d.Collection, d.RecordID, d.Payload, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%d: %w", d.Collection, d.RecordID, err)
	}
	return nil
}

func (r *PostgresRepository) SelectRecent(ctx context.Context, userID, collection string, limit int, after *time.Time) ([]models.Document, error) {
	query := `
		SELECT user_id, collection, record_id, payload, updated_at, last_synced
		FROM documents
		WHERE user_id = $1 AND collection = $2`
	args := []any{userID, collection}

	if after != nil {
		query += ` AND last_synced > $3`
		args = append(args, *after)
	}
	query += fmt.Sprintf(` ORDER BY last_synced DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.UserID, &d.Collection, &d.RecordID, &d.Payload,
			&d.UpdatedAt, &d.LastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteCollection(ctx context.Context, userID, collection string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id = $1 AND collection = $2`, userID, collection)
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user documents: %w", err)
	}
	return nil
}
