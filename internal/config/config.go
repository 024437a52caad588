package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API configuration
	API APIConfig `json:"api"`

	// Storage paths
	Storage StorageConfig `json:"storage"`

	// Sync behavior
	Sync SyncConfig `json:"sync"`

	// Connectivity probing
	Network NetworkConfig `json:"network"`

	// Logging
	Log LogConfig `json:"log"`
}

// APIConfig for server communication.
type APIConfig struct {
	BaseURL        string        `json:"base_url"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	UserAgent      string        `json:"user_agent"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir      string `json:"data_dir"`      // Base directory for all local data
	AccountsFile string `json:"accounts_file"` // Account registry file
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	MaxRetryAttempts int           `json:"max_retry_attempts"` // Upload retry budget
	BaseRetryDelay   time.Duration `json:"base_retry_delay"`   // First backoff interval
	MaxRetryDelay    time.Duration `json:"max_retry_delay"`    // Backoff ceiling
	UploadTimeout    time.Duration `json:"upload_timeout"`     // Per-attempt upload budget
	DownloadTimeout  time.Duration `json:"download_timeout"`   // Follow-up download budget
}

// NetworkConfig for the connectivity monitor.
type NetworkConfig struct {
	ProbeURL      string        `json:"probe_url"`      // Endpoint polled for reachability
	ProbeInterval time.Duration `json:"probe_interval"` // Poll frequency
	ProbeTimeout  time.Duration `json:"probe_timeout"`  // Per-probe budget
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // Log file path (empty = stdout)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".entrysync"

	return &Config{
		API: APIConfig{
			ConnectTimeout: 10 * time.Second,
			UserAgent:      "entrysync/1.0",
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			AccountsFile: filepath.Join(dataDir, "accounts.json"),
		},
		Sync: SyncConfig{
			MaxRetryAttempts: 3,
			BaseRetryDelay:   time.Second,
			MaxRetryDelay:    30 * time.Second,
			UploadTimeout:    60 * time.Second,
			DownloadTimeout:  30 * time.Second,
		},
		Network: NetworkConfig{
			ProbeInterval: 15 * time.Second,
			ProbeTimeout:  5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Sync.MaxRetryAttempts <= 0 {
		return errors.New("sync.max_retry_attempts must be positive")
	}

	if c.Sync.BaseRetryDelay <= 0 {
		return errors.New("sync.base_retry_delay must be positive")
	}

	if c.Sync.MaxRetryDelay < c.Sync.BaseRetryDelay {
		return errors.New("sync.max_retry_delay must be >= sync.base_retry_delay")
	}

	if c.Sync.UploadTimeout <= 0 || c.Sync.DownloadTimeout <= 0 {
		return errors.New("sync timeouts must be positive")
	}

	if c.Network.ProbeInterval <= 0 {
		return errors.New("network.probe_interval must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		filepath.Dir(c.Storage.AccountsFile),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
