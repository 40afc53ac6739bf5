package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/dbx"
	"github.com/dmitrijs2005/farmledger/internal/server/models"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over a DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, salt, verifier)
		VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.Salt, u.Verifier)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user %q: %w", u.Username, common.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, salt, verifier, created_at FROM users WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.Salt, &u.Verifier, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	var settings json.RawMessage
	err := r.db.QueryRowContext(ctx,
		`SELECT settings FROM users WHERE id = $1`, userID).Scan(&settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (r *PostgresRepository) SetSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET settings = $2 WHERE id = $1`, userID, settings)
	if err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
