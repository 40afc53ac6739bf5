package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/server/models"
)

// Repository describes persistence for synced documents.
type Repository interface {
	// Upsert writes one document, stamping last_synced server-side.
	Upsert(ctx context.Context, d *models.Document) error

	// SelectRecent returns the user's most recently synced documents in a
	// collection, newest first, optionally restricted to those synced after
	// the given time.
	SelectRecent(ctx context.Context, userID, collection string, limit int, after *time.Time) ([]models.Document, error)

	// DeleteCollection removes every document of the user in the collection.
	DeleteCollection(ctx context.Context, userID, collection string) error

	// DeleteAll removes every document of the user.
	DeleteAll(ctx context.Context, userID string) error
}
