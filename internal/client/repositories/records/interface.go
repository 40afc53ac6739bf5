package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
)

// Repository describes CRUD and query operations for records, backed by the
// local SQLite database. Implementations run on either *sql.DB or *sql.Tx
// (dbx.DBTX); callers needing multi-statement atomicity wrap calls in
// dbx.WithTx.
type Repository interface {
	// Insert stores a new record. A zero ID is replaced with the next free id
	// in the collection; an explicit colliding id yields common.ErrDuplicateKey.
	Insert(ctx context.Context, c models.Collection, r *models.Record) (int64, error)

	// Put upserts a record exactly as given, including its sync flags.
	// Used by snapshot import and by the pull phase of sync.
	Put(ctx context.Context, c models.Collection, r *models.Record) error

	// Get returns one record or common.ErrNotFound.
	Get(ctx context.Context, c models.Collection, id int64) (*models.Record, error)

	// GetAll returns the collection's records matching the filter, ordered by
	// date descending with ties broken by id descending.
	GetAll(ctx context.Context, c models.Collection, f models.Filter) ([]models.Record, error)

	// Delete removes a record. Deleting an absent id is not an error.
	Delete(ctx context.Context, c models.Collection, id int64) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context, c models.Collection) error

	// Unsynced returns all records with synced=false across the given
	// collections, each tagged with its source collection.
	Unsynced(ctx context.Context, collections []models.Collection) ([]models.Record, error)

	// MarkSynced flips a record to synced=true with the given timestamp.
	MarkSynced(ctx context.Context, c models.Collection, id int64, at time.Time) error

	// Count returns the number of records across the given collections with
	// the given synced state.
	Count(ctx context.Context, collections []models.Collection, synced bool) (int, error)
}
