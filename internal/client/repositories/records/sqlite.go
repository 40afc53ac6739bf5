package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/dbx"
)

// timeLayout is the on-disk timestamp format (ISO-8601, UTC).
const timeLayout = time.RFC3339Nano

const recordColumns = `collection, id, date, type, category, livestock, status, breed,
	quantity, amount, notes, created_at, updated_at, synced, synced_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, c models.Collection, rec *models.Record) (int64, error) {
	if rec.ID != 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM records WHERE collection=? AND id=?`, c, rec.ID).Scan(&exists)
		if err == nil {
			return 0, fmt.Errorf("record %s/%d: %w", c, rec.ID, common.ErrDuplicateKey)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to check record id: %w", err)
		}
	} else {
		// Per-collection monotonic id from the counters table. The counter
		// survives deletes so ids are never reused, and it catches up with
		// explicit ids written past it (imports, remote pulls). The caller
		// runs Insert inside a transaction so the bump and the write below
		// are atomic.
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO counters (collection, value)
			VALUES (?, (SELECT COALESCE(MAX(id), 0) FROM records WHERE collection=?) + 1)
			ON CONFLICT(collection) DO UPDATE SET
				value = MAX(counters.value, (SELECT COALESCE(MAX(id), 0) FROM records WHERE collection=?)) + 1
			RETURNING value`, c, c, c).Scan(&rec.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to assign record id: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c, rec.ID, rec.Date, rec.Type, rec.Category, rec.Livestock, rec.Status, rec.Breed,
		rec.Quantity, rec.Amount, rec.Notes,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
		boolToInt(rec.Synced), formatTimePtr(rec.SyncedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}
	rec.Collection = c
	return rec.ID, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, c models.Collection, rec *models.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			date = excluded.date,
			type = excluded.type,
			category = excluded.category,
			livestock = excluded.livestock,
			status = excluded.status,
			breed = excluded.breed,
			quantity = excluded.quantity,
			amount = excluded.amount,
			notes = excluded.notes,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced = excluded.synced,
			synced_at = excluded.synced_at`,
		c, rec.ID, rec.Date, rec.Type, rec.Category, rec.Livestock, rec.Status, rec.Breed,
		rec.Quantity, rec.Amount, rec.Notes,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
		boolToInt(rec.Synced), formatTimePtr(rec.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c models.Collection, id int64) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records WHERE collection=? AND id=?`, c, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s/%d: %w", c, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, c models.Collection, f models.Filter) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE collection=?`
	args := []any{c}

	for _, cond := range []struct {
		column, value string
	}{
		{"type", f.Type},
		{"category", f.Category},
		{"livestock", f.Livestock},
		{"status", f.Status},
	} {
		if cond.value != "" {
			query += ` AND ` + cond.column + `=?`
			args = append(args, cond.value)
		}
	}
	if f.StartDate != "" {
		query += ` AND date >= ?`
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += ` AND date <= ?`
		args = append(args, f.EndDate)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *SQLiteRepository) Delete(ctx context.Context, c models.Collection, id int64) error {
	// Idempotent: a missing id is not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=? AND id=?`, c, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, c models.Collection) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=?`, c)
	if err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", c, err)
	}
	return nil
}

func (r *SQLiteRepository) Unsynced(ctx context.Context, collections []models.Collection) ([]models.Record, error) {
	if len(collections) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(collections)), ",")
	args := make([]any, 0, len(collections))
	for _, c := range collections {
		args = append(args, c)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE synced=0 AND collection IN (`+placeholders+`)
		ORDER BY collection, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, c models.Collection, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET synced=1, synced_at=? WHERE collection=? AND id=?`,
		formatTime(at), c, id)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("record %s/%d: %w", c, id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, collections []models.Collection, synced bool) (int, error) {
	if len(collections) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(collections)), ",")
	args := []any{boolToInt(synced)}
	for _, c := range collections {
		args = append(args, c)
	}

	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records
		WHERE synced=? AND collection IN (`+placeholders+`)`, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func collectRecords(rows *sql.Rows) ([]models.Record, error) {
	result := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var (
		rec                            models.Record
		collection                     string
		createdAt, updatedAt, syncedAt sql.NullString
		synced                         int
	)
	err := scan(&collection, &rec.ID, &rec.Date, &rec.Type, &rec.Category,
		&rec.Livestock, &rec.Status, &rec.Breed, &rec.Quantity, &rec.Amount,
		&rec.Notes, &createdAt, &updatedAt, &synced, &syncedAt)
	if err != nil {
		return nil, err
	}

	rec.Collection = models.Collection(collection)
	rec.Synced = synced != 0
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if syncedAt.Valid && syncedAt.String != "" {
		t, err := time.Parse(timeLayout, syncedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid synced_at: %w", err)
		}
		rec.SyncedAt = &t
	}
	return &rec, nil
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
