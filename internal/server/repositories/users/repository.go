package users

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/farmledger/internal/server/models"
)

// Repository describes persistence for user accounts and their settings
// document.
type Repository interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetSettings(ctx context.Context, userID string) (json.RawMessage, error)
	SetSettings(ctx context.Context, userID string, settings json.RawMessage) error
	Delete(ctx context.Context, userID string) error
}
