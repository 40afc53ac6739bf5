package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/remote"
	"github.com/dmitrijs2005/farmledger/internal/client/store"
	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/logging"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
)

// SyncStatus is the externally visible state of the engine.
type SyncStatus string

const (
	SyncStatusIdle            SyncStatus = "idle"
	SyncStatusSyncing         SyncStatus = "syncing"
	SyncStatusSynced          SyncStatus = "synced"
	SyncStatusOffline         SyncStatus = "offline"
	SyncStatusUnauthenticated SyncStatus = "unauthenticated"
	SyncStatusError           SyncStatus = "error"
)

// SyncResult reports the outcome of one pass.
type SyncResult struct {
	Status SyncStatus
	Pushed int
	Pulled int
	Err    error
}

// SessionInfo and OnlineInfo are the two signals guarding every pass.
type SessionInfo interface {
	Authenticated() bool
}

type OnlineInfo interface {
	IsOnline() bool
}

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
	defaultPullLimit   = 100
	defaultSyncPeriod  = 5 * time.Minute
)

// SyncService reconciles the local store with the remote document store:
// push of unsynced records as one atomic batch, then pull of recently
// changed remote documents with remote-wins-on-newer-timestamp resolution.
// At most one pass runs at a time; extra triggers are dropped silently
// because the running pass re-reads the unsynced set at its start.
type SyncService struct {
	store   *store.Store
	remote  remote.Client
	session SessionInfo
	online  OnlineInfo
	log     logging.Logger

	maxAttempts int
	retryDelay  time.Duration
	pullLimit   int
	syncPeriod  time.Duration

	inFlight atomic.Bool

	mu       sync.Mutex
	status   SyncStatus
	lastSync *time.Time

	cronMu   sync.Mutex
	cron     *cron.Cron
	cronID   cron.EntryID
	triggers sync.WaitGroup

	now func() time.Time
}

// NewSyncService wires the engine. syncPeriod is the periodic-pass interval;
// zero or negative falls back to the default.
func NewSyncService(st *store.Store, rc remote.Client, session SessionInfo, online OnlineInfo, syncPeriod time.Duration, log logging.Logger) *SyncService {
	if syncPeriod <= 0 {
		syncPeriod = defaultSyncPeriod
	}
	return &SyncService{
		store:       st,
		remote:      rc,
		session:     session,
		online:      online,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		pullLimit:   defaultPullLimit,
		syncPeriod:  syncPeriod,
		status:      SyncStatusIdle,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Status returns the engine's current state.
func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SyncService) setStatus(st SyncStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *SyncService) setLastSync(t time.Time) {
	s.mu.Lock()
	s.lastSync = &t
	s.mu.Unlock()
}

// LastSync returns the completion time of the most recent successful pass.
func (s *SyncService) LastSync() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// SyncAll runs one full push+pull pass. A pass is refused (no-op, not an
// error) without a session, while offline, or while another pass is running.
func (s *SyncService) SyncAll(ctx context.Context) SyncResult {
	if !s.session.Authenticated() {
		return SyncResult{Status: SyncStatusUnauthenticated}
	}
	if !s.online.IsOnline() {
		return SyncResult{Status: SyncStatusOffline}
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		// Dropped silently: the in-flight pass reads the current queue.
		return SyncResult{Status: SyncStatusSyncing}
	}
	defer s.inFlight.Store(false)

	s.setStatus(SyncStatusSyncing)

	unsynced, err := s.store.GetUnsynced(ctx)
	if err != nil {
		s.setStatus(SyncStatusError)
		return SyncResult{Status: SyncStatusError, Err: err}
	}

	if len(unsynced) == 0 {
		// Common case, must be cheap: no remote calls at all.
		s.setLastSync(s.now())
		s.setStatus(SyncStatusSynced)
		return SyncResult{Status: SyncStatusSynced}
	}

	s.log.Info(ctx, "syncing records", "count", len(unsynced))

	queued := s.claimQueue(ctx, unsynced)

	if err := s.push(ctx, unsynced); err != nil {
		s.markQueueFailed(ctx, queued)
		s.setStatus(SyncStatusError)
		return SyncResult{Status: SyncStatusError, Err: err}
	}

	now := s.now()
	for i := range unsynced {
		rec := &unsynced[i]
		if err := s.store.MarkSynced(ctx, rec.Collection, rec.ID, now); err != nil {
			s.setStatus(SyncStatusError)
			return SyncResult{Status: SyncStatusError, Pushed: i, Err: err}
		}
	}
	if err := s.store.RemoveQueueEntries(ctx, queued); err != nil {
		s.log.Warn(ctx, "failed to clean sync queue", "error", err)
	}
	s.setLastSync(now)

	pulled, pullErr := s.pull(ctx)
	if pullErr != nil {
		// Push results are kept; only the pull phase is skipped this pass.
		s.log.Warn(ctx, "pull phase failed", "error", pullErr)
		s.setStatus(SyncStatusSynced)
		return SyncResult{
			Status: SyncStatusSynced,
			Pushed: len(unsynced),
			Pulled: pulled,
			Err:    fmt.Errorf("%w: %v", common.ErrRemoteReadFailed, pullErr),
		}
	}

	s.setStatus(SyncStatusSynced)
	return SyncResult{Status: SyncStatusSynced, Pushed: len(unsynced), Pulled: pulled}
}

// push commits all unsynced records as one atomic batch, retrying transient
// failures on a constant delay up to maxAttempts total attempts.
func (s *SyncService) push(ctx context.Context, unsynced []models.Record) error {
	entries := make([]remote.BatchEntry, 0, len(unsynced))
	for _, rec := range unsynced {
		entries = append(entries, remote.BatchEntry{
			Collection: rec.Collection,
			RecordID:   rec.ID,
			Record:     rec,
		})
	}

	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.remote.BatchWrite(ctx, entries); err != nil {
			s.log.Warn(ctx, "batch write failed, will retry", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %v", common.ErrRemoteWriteFailed, s.maxAttempts, err)
	}
	return nil
}

// claimQueue marks the queue entries backing the batch inflight, bumping
// their attempt counters, and returns their ids. Failed and stranded
// inflight entries are reclaimed too, so a rejected or crashed pass never
// orphans a row. Queue bookkeeping is best-effort: an unclaimed entry only
// causes a redundant (idempotent) push later.
func (s *SyncService) claimQueue(ctx context.Context, batch []models.Record) []int64 {
	entries, err := s.store.QueueEntries(ctx)
	if err != nil || len(entries) == 0 {
		return nil
	}

	inBatch := make(map[string]struct{}, len(batch))
	for _, rec := range batch {
		inBatch[fmt.Sprintf("%s/%d", rec.Collection, rec.ID)] = struct{}{}
	}

	var ids []int64
	for _, e := range entries {
		if _, ok := inBatch[fmt.Sprintf("%s/%d", e.Collection, e.RecordID)]; !ok {
			continue
		}
		if err := s.store.MarkQueueStatus(ctx, e.ID, models.QueueStatusInflight); err != nil {
			s.log.Warn(ctx, "failed to mark queue entry inflight", "error", err)
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids
}

// markQueueFailed records a terminal push failure on the claimed entries.
// They drop out of the pending count and are reclaimed by the next pass.
func (s *SyncService) markQueueFailed(ctx context.Context, ids []int64) {
	for _, id := range ids {
		if err := s.store.MarkQueueStatus(ctx, id, models.QueueStatusFailed); err != nil {
			s.log.Warn(ctx, "failed to mark queue entry failed", "error", err)
		}
	}
}

// pull fetches the most recently changed remote documents per collection and
// applies each one locally iff it is strictly newer than the local copy.
// Equal or older remote timestamps leave the local record untouched; it will
// be pushed on the next pass.
func (s *SyncService) pull(ctx context.Context) (int, error) {
	applied := 0
	for _, c := range models.SyncableCollections() {
		docs, err := s.remote.QueryRecent(ctx, c, s.pullLimit, nil)
		if err != nil {
			return applied, fmt.Errorf("query %s: %w", c, err)
		}

		for _, doc := range docs {
			local, err := s.store.Get(ctx, c, doc.RecordID)
			switch {
			case errors.Is(err, common.ErrNotFound):
				// absent locally: take the remote copy
			case err != nil:
				return applied, err
			case !doc.Record.ModifiedAt().After(local.ModifiedAt()):
				continue
			}

			rec := doc.Record
			rec.ID = doc.RecordID
			rec.Collection = c
			if err := s.store.ApplyRemote(ctx, c, &rec, s.now()); err != nil {
				return applied, err
			}
			applied++
		}
	}
	return applied, nil
}

// EnqueueRecord durably queues an outbound change and, when a session is
// active and the device is online, kicks off a background pass. The caller
// never blocks on (or sees errors from) the push itself.
func (s *SyncService) EnqueueRecord(ctx context.Context, c models.Collection, id int64, rec *models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.store.Enqueue(ctx, &models.SyncQueueEntry{
		Collection: c,
		RecordID:   id,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	if s.session.Authenticated() && s.online.IsOnline() {
		s.TriggerAsync()
	}
	return nil
}

// TriggerAsync starts a pass in the background. Tests and shutdown paths
// call Wait to observe completion.
func (s *SyncService) TriggerAsync() {
	s.triggers.Add(1)
	go func() {
		defer s.triggers.Done()
		res := s.SyncAll(context.Background())
		if res.Err != nil {
			s.log.Warn(context.Background(), "background sync failed", "error", res.Err)
		}
	}()
}

// Wait blocks until every background trigger started so far has finished.
func (s *SyncService) Wait() {
	s.triggers.Wait()
}

// StartPeriodic schedules a pass every syncPeriod until StopPeriodic.
// Called on login; an immediate pass is triggered as well.
func (s *SyncService) StartPeriodic() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.cronID = s.cron.Schedule(cron.Every(s.syncPeriod), cron.FuncJob(func() {
		res := s.SyncAll(context.Background())
		if res.Err != nil {
			s.log.Warn(context.Background(), "periodic sync failed", "error", res.Err)
		}
	}))
	s.cron.Start()

	s.TriggerAsync()
}

// StopPeriodic cancels the schedule. Called on logout so no timer keeps
// firing for a dead session.
func (s *SyncService) StopPeriodic() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Remove(s.cronID)
	s.cron.Stop()
	s.cron = nil
}

// Stats is a read-only aggregate for display; it never mutates state or
// triggers a pass.
func (s *SyncService) Stats(ctx context.Context) (*models.SyncStats, error) {
	synced, err := s.store.CountSynced(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := s.store.CountFailedQueue(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SyncStats{
		SyncedCount:  synced,
		PendingCount: pending,
		FailedCount:  failed,
		LastSyncTime: s.LastSync(),
	}, nil
}

// ClearRemoteData deletes all of the user's remote documents across every
// collection, then the user document itself. Local data is untouched.
// Irreversible; confirmation is the caller's concern.
func (s *SyncService) ClearRemoteData(ctx context.Context) error {
	if !s.session.Authenticated() {
		return common.ErrUnauthenticated
	}
	if !s.online.IsOnline() {
		return common.ErrOffline
	}

	for _, c := range models.SyncableCollections() {
		if err := s.remote.DeleteCollection(ctx, c); err != nil {
			return fmt.Errorf("failed to clear collection %s: %w", c, err)
		}
	}
	return s.remote.DeleteUserData(ctx)
}

// SyncSettings pushes the local settings map as a single remote document.
func (s *SyncService) SyncSettings(ctx context.Context) error {
	if !s.session.Authenticated() || !s.online.IsOnline() {
		return nil
	}
	stgs, err := s.store.Settings(ctx)
	if err != nil {
		return err
	}
	return s.remote.PutSettings(ctx, stgs)
}

// ApplyRemoteSettings overlays locally stored settings with the remote copy.
// Called after login.
func (s *SyncService) ApplyRemoteSettings(ctx context.Context) error {
	stgs, err := s.remote.GetSettings(ctx)
	if err != nil {
		return err
	}
	for key, value := range stgs {
		if err := s.store.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}
