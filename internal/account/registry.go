// Package account owns identity and storage addressing for remote
// accounts. It never touches draft contents; any code path that wants an
// account's drafts must resolve the account here first, which makes the
// isolation guarantee auditable in one place.
package account

import (
	"fmt"
	"sort"
	"sync"

	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

// Store persists the account list and the active account id.
type Store interface {
	Load() ([]models.AccountInfo, error)
	Save(accounts []models.AccountInfo) error
	ActiveID() (string, error)
	SetActiveID(id string) error
}

// Registry resolves account identity and the active account.
type Registry struct {
	mu     sync.Mutex
	store  Store
	logger *events.Logger
}

// NewRegistry creates an account registry backed by the given store.
func NewRegistry(store Store, logger *events.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.WithField("component", "account_registry"),
	}
}

// GetOrCreate resolves the account for a (username, serverURL) pair,
// creating and persisting it on first use. Re-deriving the id for the
// same pair always finds the same record.
func (r *Registry) GetOrCreate(username, serverURL string) (models.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.store.Load()
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("load accounts: %w", err)
	}

	id := models.DeriveAccountID(username, serverURL)
	for i := range accounts {
		if accounts[i].AccountID == id {
			accounts[i].Touch()
			if err := r.store.Save(accounts); err != nil {
				return models.AccountInfo{}, fmt.Errorf("save accounts: %w", err)
			}
			return accounts[i], nil
		}
	}

	info := models.NewAccountInfo(username, serverURL)
	accounts = append(accounts, info)

	if err := r.store.Save(accounts); err != nil {
		return models.AccountInfo{}, fmt.Errorf("save accounts: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"account_id": info.AccountID,
		"server":     serverURL,
	}).Info("Registered account")

	return info, nil
}

// SetActive marks an account as the active one.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	for i := range accounts {
		if accounts[i].AccountID == id {
			accounts[i].Touch()
			if err := r.store.Save(accounts); err != nil {
				return fmt.Errorf("save accounts: %w", err)
			}
			return r.store.SetActiveID(id)
		}
	}

	return models.ErrAccountNotFound
}

// GetActive returns the active account, or ErrNoActiveAccount.
func (r *Registry) GetActive() (models.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.store.ActiveID()
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("load active id: %w", err)
	}
	if id == "" {
		return models.AccountInfo{}, models.ErrNoActiveAccount
	}

	accounts, err := r.store.Load()
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("load accounts: %w", err)
	}

	for _, a := range accounts {
		if a.AccountID == id {
			return a, nil
		}
	}

	// Active id pointing at a removed account is treated as no session.
	return models.AccountInfo{}, models.ErrNoActiveAccount
}

// ClearActive clears the active account marker.
func (r *Registry) ClearActive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.SetActiveID("")
}

// Remove deletes the registry entry. Discarding the account's local
// store contents is the caller's concern.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.store.Load()
	if err != nil {
		return false, fmt.Errorf("load accounts: %w", err)
	}

	kept := accounts[:0]
	removed := false
	for _, a := range accounts {
		if a.AccountID == id {
			removed = true
			continue
		}
		kept = append(kept, a)
	}

	if !removed {
		return false, nil
	}

	if err := r.store.Save(kept); err != nil {
		return false, fmt.Errorf("save accounts: %w", err)
	}

	activeID, err := r.store.ActiveID()
	if err == nil && activeID == id {
		if err := r.store.SetActiveID(""); err != nil {
			return false, fmt.Errorf("clear active id: %w", err)
		}
	}

	r.logger.WithField("account_id", id).Info("Removed account")
	return true, nil
}

// List returns all accounts, most recently used first.
func (r *Registry) List() ([]models.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].LastUsed.After(accounts[j].LastUsed)
	})

	return accounts, nil
}
