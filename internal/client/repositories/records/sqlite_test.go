package records

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/farmledger/internal/client/migrations"
	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))

	return db
}

func newRecord(date string) *models.Record {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Record{
		Date:      date,
		Type:      "milk",
		Quantity:  25.5,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAssignsSequentialIDs(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id1, err := repo.Insert(ctx, models.CollectionProduction, newRecord("2026-03-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	id2, err := repo.Insert(ctx, models.CollectionProduction, newRecord("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	// ids are per collection, not global
	id3, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id3)
}

func TestInsertNeverReusesDeletedIDs(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id1, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-01"))
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-02"))
	require.NoError(t, err)
	require.Equal(t, int64(1), id1)
	require.Equal(t, int64(2), id2)

	// deleting the highest id must not free it for the next insert:
	// the id names a remote document and a reuse would overwrite it
	require.NoError(t, repo.Delete(ctx, models.CollectionFinancial, id2))

	id3, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-03"))
	require.NoError(t, err)
	assert.NotEqual(t, id2, id3)
	assert.Equal(t, int64(3), id3)

	// the counter catches up past explicit ids written by pulls and imports
	pulled := newRecord("2026-03-04")
	pulled.ID = 10
	require.NoError(t, repo.Put(ctx, models.CollectionFinancial, pulled))

	id4, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-05"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), id4)
}

func TestInsertExplicitIDConflict(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rec := newRecord("2026-03-01")
	rec.ID = 7
	_, err := repo.Insert(ctx, models.CollectionHealth, rec)
	require.NoError(t, err)

	dup := newRecord("2026-03-02")
	dup.ID = 7
	_, err = repo.Insert(ctx, models.CollectionHealth, dup)
	assert.ErrorIs(t, err, common.ErrDuplicateKey)

	// same id in another collection is fine
	other := newRecord("2026-03-02")
	other.ID = 7
	_, err = repo.Insert(ctx, models.CollectionCows, other)
	assert.NoError(t, err)
}

func TestGetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	_, err := repo.Get(context.Background(), models.CollectionProduction, 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rec := newRecord("2026-03-01")
	rec.Category = "feed"
	rec.Amount = 120.50
	rec.Notes = "spring order"

	id, err := repo.Insert(ctx, models.CollectionFinancial, rec)
	require.NoError(t, err)

	got, err := repo.Get(ctx, models.CollectionFinancial, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.CollectionFinancial, got.Collection)
	assert.Equal(t, "2026-03-01", got.Date)
	assert.Equal(t, "feed", got.Category)
	assert.Equal(t, 120.50, got.Amount)
	assert.Equal(t, "spring order", got.Notes)
	assert.False(t, got.Synced)
	assert.Nil(t, got.SyncedAt)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
}

func TestGetAllOrderingAndFilters(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, d := range []string{"2026-03-01", "2026-03-03", "2026-03-02", "2026-03-03"} {
		rec := newRecord(d)
		_, err := repo.Insert(ctx, models.CollectionProduction, rec)
		require.NoError(t, err)
	}

	all, err := repo.GetAll(ctx, models.CollectionProduction, models.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	// date desc, ties broken by id desc
	assert.Equal(t, "2026-03-03", all[0].Date)
	assert.Equal(t, int64(4), all[0].ID)
	assert.Equal(t, "2026-03-03", all[1].Date)
	assert.Equal(t, int64(2), all[1].ID)
	assert.Equal(t, "2026-03-02", all[2].Date)
	assert.Equal(t, "2026-03-01", all[3].Date)

	ranged, err := repo.GetAll(ctx, models.CollectionProduction, models.Filter{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	typed := newRecord("2026-03-04")
	typed.Type = "eggs"
	_, err = repo.Insert(ctx, models.CollectionProduction, typed)
	require.NoError(t, err)

	eggs, err := repo.GetAll(ctx, models.CollectionProduction, models.Filter{Type: "eggs"})
	require.NoError(t, err)
	require.Len(t, eggs, 1)
	assert.Equal(t, "eggs", eggs[0].Type)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := repo.Insert(ctx, models.CollectionPoultry, newRecord("2026-03-01"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, models.CollectionPoultry, id))
	require.NoError(t, repo.Delete(ctx, models.CollectionPoultry, id))

	_, err = repo.Get(ctx, models.CollectionPoultry, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnsyncedAndMarkSynced(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id1, err := repo.Insert(ctx, models.CollectionProduction, newRecord("2026-03-01"))
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, models.CollectionFinancial, newRecord("2026-03-02"))
	require.NoError(t, err)

	unsynced, err := repo.Unsynced(ctx, models.SyncableCollections())
	require.NoError(t, err)
	require.Len(t, unsynced, 2)
	for _, rec := range unsynced {
		assert.True(t, rec.Collection.Valid(), "records must be tagged with their collection")
	}

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSynced(ctx, models.CollectionProduction, id1, at))

	unsynced, err = repo.Unsynced(ctx, models.SyncableCollections())
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, id2, unsynced[0].ID)
	assert.Equal(t, models.CollectionFinancial, unsynced[0].Collection)

	got, err := repo.Get(ctx, models.CollectionProduction, id1)
	require.NoError(t, err)
	assert.True(t, got.Synced)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, got.SyncedAt.Equal(at))
}

func TestMarkSyncedAbsentRecord(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	err := repo.MarkSynced(context.Background(), models.CollectionProduction, 99, time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCount(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := repo.Insert(ctx, models.CollectionProduction, newRecord("2026-03-01"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, models.CollectionHealth, newRecord("2026-03-02"))
	require.NoError(t, err)

	pending, err := repo.Count(ctx, models.SyncableCollections(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	require.NoError(t, repo.MarkSynced(ctx, models.CollectionProduction, id, time.Now().UTC()))

	synced, err := repo.Count(ctx, models.SyncableCollections(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
}

func TestPutUpsertsWithFlags(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	rec := newRecord("2026-03-01")
	rec.ID = 3
	rec.Synced = true
	rec.SyncedAt = &at

	require.NoError(t, repo.Put(ctx, models.CollectionCows, rec))

	got, err := repo.Get(ctx, models.CollectionCows, 3)
	require.NoError(t, err)
	assert.True(t, got.Synced)

	// second Put replaces in place
	rec.Quantity = 99
	require.NoError(t, repo.Put(ctx, models.CollectionCows, rec))

	got, err = repo.Get(ctx, models.CollectionCows, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(99), got.Quantity)
}
