package account

import (
	"sync"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// MockStore provides an in-memory account store for testing.
type MockStore struct {
	mu       sync.Mutex
	accounts []models.AccountInfo
	activeID string

	// Optional failure injection
	LoadErr error
	SaveErr error
}

// NewMockStore creates a mock account store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Load returns the stored account list.
func (m *MockStore) Load() ([]models.AccountInfo, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.AccountInfo, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

// Save replaces the stored account list.
func (m *MockStore) Save(accounts []models.AccountInfo) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = make([]models.AccountInfo, len(accounts))
	copy(m.accounts, accounts)
	return nil
}

// ActiveID returns the active account id.
func (m *MockStore) ActiveID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID, nil
}

// SetActiveID records the active account id.
func (m *MockStore) SetActiveID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeID = id
	return nil
}
