package models

import "time"

// Queue entry statuses.
const (
	QueueStatusPending  = "pending"
	QueueStatusInflight = "inflight"
	QueueStatusFailed   = "failed"
)

// SyncQueueEntry is a durable note of one outbound change not yet confirmed
// written to the remote store.
type SyncQueueEntry struct {
	ID         int64      `json:"id"`
	Collection Collection `json:"collection"`
	RecordID   int64      `json:"recordId"`
	Payload    []byte     `json:"payload"`
	Attempts   int        `json:"attempts"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// RemoteDocument is the remote store's representation of a record, addressed
// by (user, collection, record id) and stamped server-side on every write.
type RemoteDocument struct {
	Collection Collection `json:"collection"`
	RecordID   int64      `json:"recordId"`
	Record     Record     `json:"record"`
	LastSynced time.Time  `json:"lastSynced"`
}

// SyncStats is the read-only aggregate shown to the user.
type SyncStats struct {
	SyncedCount  int        `json:"syncedCount"`
	PendingCount int        `json:"pendingCount"`
	FailedCount  int        `json:"failedCount"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}
