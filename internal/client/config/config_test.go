package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"client"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfigDefaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, "farmledger.db", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
}

func TestLoadConfigFlagsOverrideDefaults(t *testing.T) {
	withArgs(t, "-a", "http://farm.example:9090", "-d", "other.db", "-i", "10", "-s", "120")

	cfg := LoadConfig()
	assert.Equal(t, "http://farm.example:9090", cfg.ServerEndpointAddr)
	assert.Equal(t, "other.db", cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
}

func TestLoadConfigJsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_endpoint_addr": "http://json.example:8000",
		"sync_interval": "10m"
	}`), 0o600))

	withArgs(t, "-c", path)

	cfg := LoadConfig()
	assert.Equal(t, "http://json.example:8000", cfg.ServerEndpointAddr)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	// fields absent from the file keep their defaults
	assert.Equal(t, "farmledger.db", cfg.DatabaseDSN)
}

func TestLoadConfigFlagsBeatJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_dsn": "from-json.db"}`), 0o600))

	withArgs(t, "-c", path, "-d", "from-flag.db")

	cfg := LoadConfig()
	assert.Equal(t, "from-flag.db", cfg.DatabaseDSN)
}
