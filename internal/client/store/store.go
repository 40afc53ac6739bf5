// Package store implements the client's durable local store: transactional
// record CRUD per collection, the synced-flag bookkeeping, settings, the
// outbound sync queue, and snapshot export/import.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/farmledger/internal/client/repositories/settings"
	"github.com/dmitrijs2005/farmledger/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/dbx"
)

// Store is the single entry point to local persistence. Every write through
// Add/Update marks the record unsynced; only MarkSynced and ApplyRemote set
// the flag back, so the flag stays the sole source of truth for "does the
// remote store have this exact version".
type Store struct {
	db *sql.DB

	// now is a test seam for timestamp assignment.
	now func() time.Time
}

// New wraps an already-migrated database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for collaborators that manage their own
// repositories (e.g. the session service's metadata cache).
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) recordsRepo(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

func (s *Store) settingsRepo(db dbx.DBTX) settings.Repository {
	return settings.NewSQLiteRepository(db)
}

func (s *Store) queueRepo(db dbx.DBTX) syncqueue.Repository {
	return syncqueue.NewSQLiteRepository(db)
}

// Metadata returns the device-local metadata repository.
func (s *Store) Metadata() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// Add inserts a record into the collection, assigning the next free id when
// rec.ID is zero. The record is stamped created/updated now and stored
// unsynced regardless of the flags on rec.
func (s *Store) Add(ctx context.Context, c models.Collection, rec *models.Record) (int64, error) {
	if !c.Valid() {
		return 0, common.NewStorageError(c.String(), fmt.Errorf("unknown collection"))
	}

	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Synced = false
	rec.SyncedAt = nil

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		id, err = s.recordsRepo(tx).Insert(ctx, c, rec)
		return err
	})
	if err != nil {
		return 0, common.NewStorageError(c.String(), err)
	}
	return id, nil
}

// Update merges the patch into an existing record, bumps updatedAt (strictly
// monotonic) and resets the synced flag.
func (s *Store) Update(ctx context.Context, c models.Collection, id int64, patch models.Patch) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.recordsRepo(tx)

		rec, err := repo.Get(ctx, c, id)
		if err != nil {
			return err
		}

		patch.Apply(rec)

		now := s.now()
		if !now.After(rec.UpdatedAt) {
			// Clock went backwards or the update landed within timestamp
			// resolution; keep updatedAt strictly increasing anyway.
			now = rec.UpdatedAt.Add(time.Nanosecond)
		}
		rec.UpdatedAt = now
		rec.Synced = false
		rec.SyncedAt = nil

		return repo.Put(ctx, c, rec)
	})
	if err != nil {
		return common.NewStorageError(c.String(), err)
	}
	return nil
}

// Delete removes a record. Deleting an absent id succeeds.
func (s *Store) Delete(ctx context.Context, c models.Collection, id int64) error {
	if err := s.recordsRepo(s.db).Delete(ctx, c, id); err != nil {
		return common.NewStorageError(c.String(), err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, c models.Collection, id int64) (*models.Record, error) {
	return s.recordsRepo(s.db).Get(ctx, c, id)
}

func (s *Store) GetAll(ctx context.Context, c models.Collection, f models.Filter) ([]models.Record, error) {
	recs, err := s.recordsRepo(s.db).GetAll(ctx, c, f)
	if err != nil {
		return nil, common.NewStorageError(c.String(), err)
	}
	return recs, nil
}

// GetUnsynced returns every record not yet confirmed written to the remote
// store, across all syncable collections, tagged with its source collection.
func (s *Store) GetUnsynced(ctx context.Context) ([]models.Record, error) {
	return s.recordsRepo(s.db).Unsynced(ctx, models.SyncableCollections())
}

// MarkSynced flips a record to synced. Only the sync engine calls this,
// after a confirmed remote write.
func (s *Store) MarkSynced(ctx context.Context, c models.Collection, id int64, at time.Time) error {
	if err := s.recordsRepo(s.db).MarkSynced(ctx, c, id, at); err != nil {
		return common.NewStorageError(c.String(), err)
	}
	return nil
}

// ApplyRemote overwrites (or creates) a local record with the remote copy and
// stores it as synced. Used by the pull phase; bypasses the dirty-marking
// write path on purpose.
func (s *Store) ApplyRemote(ctx context.Context, c models.Collection, rec *models.Record, syncedAt time.Time) error {
	rec.Synced = true
	at := syncedAt.UTC()
	rec.SyncedAt = &at
	if err := s.recordsRepo(s.db).Put(ctx, c, rec); err != nil {
		return common.NewStorageError(c.String(), err)
	}
	return nil
}

// CountSynced and CountPending back the sync-stats display.
func (s *Store) CountSynced(ctx context.Context) (int, error) {
	return s.recordsRepo(s.db).Count(ctx, models.SyncableCollections(), true)
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	return s.recordsRepo(s.db).Count(ctx, models.SyncableCollections(), false)
}

// Settings accessors.

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	return s.settingsRepo(s.db).Get(ctx, key)
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.settingsRepo(s.db).Set(ctx, key, value)
}

func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	return s.settingsRepo(s.db).List(ctx)
}

// Queue accessors.

func (s *Store) Enqueue(ctx context.Context, e *models.SyncQueueEntry) (int64, error) {
	return s.queueRepo(s.db).Enqueue(ctx, e)
}

func (s *Store) PendingQueue(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return s.queueRepo(s.db).Pending(ctx)
}

func (s *Store) QueueEntries(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return s.queueRepo(s.db).All(ctx)
}

func (s *Store) CountFailedQueue(ctx context.Context) (int, error) {
	return s.queueRepo(s.db).CountFailed(ctx)
}

func (s *Store) MarkQueueStatus(ctx context.Context, id int64, status string) error {
	return s.queueRepo(s.db).MarkStatus(ctx, id, status)
}

func (s *Store) RemoveQueueEntries(ctx context.Context, ids []int64) error {
	return s.queueRepo(s.db).Remove(ctx, ids)
}

// Export serializes every collection and the settings map into a snapshot
// with an {exportedAt, version, recordCount} metadata block.
func (s *Store) Export(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Collections: make(map[models.Collection][]models.Record, len(models.SyncableCollections())),
	}

	count := 0
	repo := s.recordsRepo(s.db)
	for _, c := range models.SyncableCollections() {
		recs, err := repo.GetAll(ctx, c, models.Filter{})
		if err != nil {
			return nil, common.NewStorageError(c.String(), err)
		}
		snap.Collections[c] = recs
		count += len(recs)
	}

	stgs, err := s.settingsRepo(s.db).List(ctx)
	if err != nil {
		return nil, common.NewStorageError("settings", err)
	}
	snap.Settings = stgs

	snap.Metadata = models.SnapshotMetadata{
		ExportedAt:  s.now(),
		Version:     models.SnapshotVersion,
		RecordCount: count,
	}
	return snap, nil
}

// Import transactionally clears every collection and the settings map, then
// repopulates them from the snapshot. All-or-nothing: a failing row rolls the
// whole import back.
func (s *Store) Import(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.recordsRepo(tx)
		for _, c := range models.SyncableCollections() {
			if err := repo.Clear(ctx, c); err != nil {
				return err
			}
			for i := range snap.Collections[c] {
				rec := snap.Collections[c][i]
				if err := repo.Put(ctx, c, &rec); err != nil {
					return err
				}
			}
		}

		stgs := s.settingsRepo(tx)
		if err := stgs.Clear(ctx); err != nil {
			return err
		}
		for key, value := range snap.Settings {
			if err := stgs.Set(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot import failed: %w", err)
	}
	return nil
}
