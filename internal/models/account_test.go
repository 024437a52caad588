package models_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

func TestDeriveAccountID(t *testing.T) {
	id := models.DeriveAccountID("bob", "https://hmis.example.org")

	assert.Len(t, id, models.AccountIDLength)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+$`), id, "id must be filesystem-safe")

	// Deterministic.
	assert.Equal(t, id, models.DeriveAccountID("bob", "https://hmis.example.org"))

	// Case-insensitive on both inputs.
	assert.Equal(t, id, models.DeriveAccountID("Bob", "https://HMIS.example.org"))
	assert.Equal(t, id, models.DeriveAccountID("BOB", "HTTPS://hmis.EXAMPLE.org"))

	// Distinct identities get distinct ids.
	assert.NotEqual(t, id, models.DeriveAccountID("alice", "https://hmis.example.org"))
	assert.NotEqual(t, id, models.DeriveAccountID("bob", "https://other.example.org"))
}

func TestNewAccountInfo(t *testing.T) {
	info := models.NewAccountInfo("jdoe", "https://hmis.example.org")

	require.NoError(t, info.Validate())
	assert.Equal(t, models.DeriveAccountID("jdoe", "https://hmis.example.org"), info.AccountID)
	assert.Contains(t, info.LocalStoreName, info.AccountID)
	assert.Contains(t, info.RemoteStoreName, info.AccountID)
	assert.False(t, info.LastUsed.IsZero())
}

func TestAccountInfoValidate(t *testing.T) {
	info := models.NewAccountInfo("jdoe", "https://hmis.example.org")

	bad := info
	bad.Username = ""
	assert.Error(t, bad.Validate())

	bad = info
	bad.AccountID = "tampered00000"
	assert.Error(t, bad.Validate())
}
