package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/remote"
	"github.com/dmitrijs2005/farmledger/internal/client/store"
	"github.com/dmitrijs2005/farmledger/internal/logging"
	"github.com/dmitrijs2005/farmledger/internal/netx"
)

// RecordService is the interface the UI layer talks to. Local persistence is
// authoritative: every write succeeds or fails on the local store alone, and
// synchronization stays best-effort in the background.
type RecordService struct {
	store  *store.Store
	sync   *SyncService
	remote remote.Client
	log    logging.Logger
}

func NewRecordService(st *store.Store, sync *SyncService, rc remote.Client, log logging.Logger) *RecordService {
	return &RecordService{store: st, sync: sync, remote: rc, log: log}
}

// Create persists the record locally and queues it for push. A failed queue
// write or sync attempt never fails the create: the record is already stored
// unsynced and will be picked up by the next pass.
func (s *RecordService) Create(ctx context.Context, c models.Collection, rec *models.Record) (int64, error) {
	id, err := s.store.Add(ctx, c, rec)
	if err != nil {
		return 0, err
	}

	if err := s.sync.EnqueueRecord(ctx, c, id, rec); err != nil {
		s.log.Warn(ctx, "failed to queue record for sync", "collection", c, "id", id, "error", err)
	}
	return id, nil
}

// Update merges a partial patch into the record; it becomes unsynced and is
// pushed on the next pass.
func (s *RecordService) Update(ctx context.Context, c models.Collection, id int64, patch models.Patch) error {
	return s.store.Update(ctx, c, id, patch)
}

// Delete removes the record locally. Idempotent.
func (s *RecordService) Delete(ctx context.Context, c models.Collection, id int64) error {
	return s.store.Delete(ctx, c, id)
}

func (s *RecordService) Get(ctx context.Context, c models.Collection, id int64) (*models.Record, error) {
	return s.store.Get(ctx, c, id)
}

func (s *RecordService) Query(ctx context.Context, c models.Collection, f models.Filter) ([]models.Record, error) {
	return s.store.GetAll(ctx, c, f)
}

// ManualSync runs one synchronous pass.
func (s *RecordService) ManualSync(ctx context.Context) SyncResult {
	return s.sync.SyncAll(ctx)
}

func (s *RecordService) Stats(ctx context.Context) (*models.SyncStats, error) {
	return s.sync.Stats(ctx)
}

func (s *RecordService) ExportSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return s.store.Export(ctx)
}

func (s *RecordService) ImportSnapshot(ctx context.Context, snap *models.Snapshot) error {
	return s.store.Import(ctx, snap)
}

// BackupToCloud exports a snapshot and uploads it to the server-issued
// presigned URL. Returns the object key for reference.
func (s *RecordService) BackupToCloud(ctx context.Context) (string, error) {
	snap, err := s.store.Export(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key, url, err := s.remote.PresignBackup(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to presign backup: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, url, data); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return key, nil
}
