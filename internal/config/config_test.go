package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.BaseRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Sync.MaxRetryDelay)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero retries", func(c *config.Config) { c.Sync.MaxRetryAttempts = 0 }},
		{"zero base delay", func(c *config.Config) { c.Sync.BaseRetryDelay = 0 }},
		{"ceiling below base", func(c *config.Config) { c.Sync.MaxRetryDelay = c.Sync.BaseRetryDelay / 2 }},
		{"zero upload timeout", func(c *config.Config) { c.Sync.UploadTimeout = 0 }},
		{"zero probe interval", func(c *config.Config) { c.Network.ProbeInterval = 0 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoaderFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entrysync.json")
	content := `{
		"api": {"base_url": "https://play.dhis2.org/demo"},
		"sync": {"max_retry_attempts": 5},
		"log": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://play.dhis2.org/demo", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched fields keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Sync.MaxRetryDelay)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entrysync.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0600))

	t.Setenv("ENTRYSYNC_LOG_LEVEL", "WARN")
	t.Setenv("ENTRYSYNC_API_BASE_URL", "https://dhis2.example.org")
	t.Setenv("ENTRYSYNC_SYNC_MAX_RETRIES", "7")
	t.Setenv("ENTRYSYNC_SYNC_UPLOAD_TIMEOUT", "90s")
	t.Setenv("ENTRYSYNC_PROBE_INTERVAL", "5s")

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level, "env wins and is lowercased")
	assert.Equal(t, "https://dhis2.example.org", cfg.API.BaseURL)
	assert.Equal(t, 7, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, 90*time.Second, cfg.Sync.UploadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Network.ProbeInterval)
}

func TestLoaderDataDirMovesDependentPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENTRYSYNC_DATA_DIR", dir)

	cfg, err := config.NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(dir, "accounts.json"), cfg.Storage.AccountsFile)
}

func TestLoaderRejectsMalformedInput(t *testing.T) {
	t.Run("bad JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "entrysync.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := config.NewLoader(path).Load()
		assert.Error(t, err)
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("ENTRYSYNC_SYNC_UPLOAD_TIMEOUT", "soon")

		_, err := config.NewLoader("").Load()
		assert.Error(t, err)
	})

	t.Run("invalid after env override", func(t *testing.T) {
		t.Setenv("ENTRYSYNC_SYNC_MAX_RETRIES", "0")

		_, err := config.NewLoader("").Load()
		assert.Error(t, err)
	})
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.AccountsFile = filepath.Join(base, "data", "accounts.json")
	cfg.Log.File = filepath.Join(base, "logs", "entrysync.log")

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Storage.DataDir, filepath.Dir(cfg.Log.File)} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
