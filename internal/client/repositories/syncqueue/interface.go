package syncqueue

import (
	"context"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
)

// Repository is the durable outbound-change queue. Entries survive restarts
// so a change queued while offline is still pushed after the process comes
// back up.
type Repository interface {
	// Enqueue stores a new pending entry and returns its queue id.
	Enqueue(ctx context.Context, e *models.SyncQueueEntry) (int64, error)

	// Pending returns all entries with status pending, oldest first.
	Pending(ctx context.Context) ([]models.SyncQueueEntry, error)

	// All returns every entry regardless of status, oldest first. The sync
	// engine uses it to reclaim failed and stranded inflight entries.
	All(ctx context.Context) ([]models.SyncQueueEntry, error)

	// MarkStatus sets the status of an entry and bumps its attempt counter
	// when the new status is inflight.
	MarkStatus(ctx context.Context, id int64, status string) error

	// Remove deletes entries confirmed written to the remote store.
	Remove(ctx context.Context, ids []int64) error

	// CountPending returns the number of pending entries.
	CountPending(ctx context.Context) (int, error)

	// CountFailed returns the number of entries whose last push attempt
	// failed terminally.
	CountFailed(ctx context.Context) (int, error)
}
