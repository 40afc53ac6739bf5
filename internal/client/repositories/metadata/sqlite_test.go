package metadata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/farmledger/internal/client/migrations"
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

func TestSetGetDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	got, err := repo.Get(ctx, "auth_salt")
	require.NoError(t, err)
	assert.Nil(t, got, "absent key should return nil, not an error")

	require.NoError(t, repo.Set(ctx, "auth_salt", []byte{1, 2, 3}))

	got, err = repo.Get(ctx, "auth_salt")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, repo.Set(ctx, "auth_salt", []byte{9}))
	got, err = repo.Get(ctx, "auth_salt")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, got)

	require.NoError(t, repo.Delete(ctx, "auth_salt"))
	got, err = repo.Get(ctx, "auth_salt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))
	require.NoError(t, repo.Clear(ctx))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
