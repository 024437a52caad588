package account

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

// registryFile is the on-disk shape of the account registry.
type registryFile struct {
	SchemaVersion int                  `json:"schema_version"`
	ActiveID      string               `json:"active_id,omitempty"`
	Accounts      []models.AccountInfo `json:"accounts"`
}

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

// JSONStore persists the account registry as a single JSON file.
// Writes go through a temp file and rename so a crash never leaves a
// half-written registry.
type JSONStore struct {
	path   string
	logger *events.Logger

	mu sync.Mutex
}

// NewJSONStore creates a file-backed account store.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create accounts directory: %w", err)
	}

	return &JSONStore{
		path:   path,
		logger: logger.WithField("component", "account_store"),
	}, nil
}

// Load reads the account list.
func (s *JSONStore) Load() ([]models.AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, err
	}
	return file.Accounts, nil
}

// Save writes the account list.
func (s *JSONStore) Save(accounts []models.AccountInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return err
	}

	file.Accounts = accounts
	return s.write(file)
}

// ActiveID returns the active account id, or empty string.
func (s *JSONStore) ActiveID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return "", err
	}
	return file.ActiveID, nil
}

// SetActiveID records the active account id.
func (s *JSONStore) SetActiveID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return err
	}

	file.ActiveID = id
	return s.write(file)
}

func (s *JSONStore) read() (*registryFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &registryFile{SchemaVersion: CurrentSchemaVersion}, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "read accounts", Err: err}
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &models.StorageError{Op: "parse accounts", Err: err}
	}

	if file.SchemaVersion != CurrentSchemaVersion {
		s.logger.WithField("version", file.SchemaVersion).Warn("Account registry schema version mismatch")
	}

	return &file, nil
}

func (s *JSONStore) write(file *registryFile) error {
	file.SchemaVersion = CurrentSchemaVersion

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return &models.StorageError{Op: "marshal accounts", Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &models.StorageError{Op: "write accounts", Err: err}
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return &models.StorageError{Op: "replace accounts", Err: err}
	}

	return nil
}
