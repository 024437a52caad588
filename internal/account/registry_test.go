package account_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/account"
	"github.com/HISP-Uganda/entrysync/internal/models"
	"github.com/HISP-Uganda/entrysync/test/testutil"
)

func newRegistry(t *testing.T) (*account.Registry, *account.MockStore) {
	t.Helper()
	store := account.NewMockStore()
	return account.NewRegistry(store, testutil.NewTestLogger()), store
}

func TestGetOrCreateIdempotent(t *testing.T) {
	reg, _ := newRegistry(t)

	first, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)

	second, err := reg.GetOrCreate("JDoe", "HTTPS://hmis.example.org")
	require.NoError(t, err)

	assert.Equal(t, first.AccountID, second.AccountID)
	assert.Equal(t, first.LocalStoreName, second.LocalStoreName)

	accounts, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "same identity must not create a second record")
}

func TestGetOrCreateBumpsLastUsed(t *testing.T) {
	reg, _ := newRegistry(t)

	first, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)
	assert.True(t, second.LastUsed.After(first.LastUsed))
}

func TestActiveAccount(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.GetActive()
	assert.ErrorIs(t, err, models.ErrNoActiveAccount)

	info, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)

	require.NoError(t, reg.SetActive(info.AccountID))

	active, err := reg.GetActive()
	require.NoError(t, err)
	assert.Equal(t, info.AccountID, active.AccountID)

	require.NoError(t, reg.ClearActive())
	_, err = reg.GetActive()
	assert.ErrorIs(t, err, models.ErrNoActiveAccount)
}

func TestSetActiveUnknown(t *testing.T) {
	reg, _ := newRegistry(t)
	assert.ErrorIs(t, reg.SetActive("nope"), models.ErrAccountNotFound)
}

func TestRemove(t *testing.T) {
	reg, _ := newRegistry(t)

	info, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)
	require.NoError(t, reg.SetActive(info.AccountID))

	removed, err := reg.Remove(info.AccountID)
	require.NoError(t, err)
	assert.True(t, removed)

	// Removing the active account clears the marker.
	_, err = reg.GetActive()
	assert.ErrorIs(t, err, models.ErrNoActiveAccount)

	removed, err = reg.Remove(info.AccountID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListOrdering(t *testing.T) {
	reg, _ := newRegistry(t)

	older, err := reg.GetOrCreate("older", "https://hmis.example.org")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	newer, err := reg.GetOrCreate("newer", "https://hmis.example.org")
	require.NoError(t, err)

	accounts, err := reg.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, newer.AccountID, accounts[0].AccountID)
	assert.Equal(t, older.AccountID, accounts[1].AccountID)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	logger := testutil.NewTestLogger()

	store, err := account.NewJSONStore(path, logger)
	require.NoError(t, err)

	reg := account.NewRegistry(store, logger)
	info, err := reg.GetOrCreate("jdoe", "https://hmis.example.org")
	require.NoError(t, err)
	require.NoError(t, reg.SetActive(info.AccountID))

	// A fresh store over the same file sees the persisted registry.
	reopened, err := account.NewJSONStore(path, logger)
	require.NoError(t, err)

	reg2 := account.NewRegistry(reopened, logger)
	active, err := reg2.GetActive()
	require.NoError(t, err)
	assert.Equal(t, info.AccountID, active.AccountID)
	assert.Equal(t, "jdoe", active.Username)
}
