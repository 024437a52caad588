package drafts

import (
	"sort"
	"sync"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// MockStore provides an in-memory draft queue for testing.
type MockStore struct {
	mu     sync.RWMutex
	drafts map[models.DraftKey]models.Draft

	// Optional failure injection
	UpsertErr error
	DeleteErr error
}

// NewMockStore creates a mock draft store.
func NewMockStore() *MockStore {
	return &MockStore{
		drafts: make(map[models.DraftKey]models.Draft),
	}
}

// Upsert inserts or replaces a draft.
func (m *MockStore) Upsert(draft models.Draft) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draft.DraftKey] = draft
	return nil
}

// ListAll returns all drafts, oldest edit first.
func (m *MockStore) ListAll() ([]models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.drafts, func(models.DraftKey) bool { return true }), nil
}

// ListForInstance returns drafts matching the scope.
func (m *MockStore) ListForInstance(scope models.InstanceScope) ([]models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.drafts, scope.Matches), nil
}

// Delete removes one draft.
func (m *MockStore) Delete(key models.DraftKey) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[key]; !ok {
		return ErrDraftNotFound
	}
	delete(m.drafts, key)
	return nil
}

// DeleteAll drains the queue.
func (m *MockStore) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = make(map[models.DraftKey]models.Draft)
	return nil
}

// Count returns the queue size.
func (m *MockStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts), nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

// Has reports whether a draft exists (test helper).
func (m *MockStore) Has(key models.DraftKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.drafts[key]
	return ok
}

func sorted(drafts map[models.DraftKey]models.Draft, match func(models.DraftKey) bool) []models.Draft {
	var out []models.Draft
	for k, d := range drafts {
		if match(k) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.Before(out[j].LastModified)
	})
	return out
}
