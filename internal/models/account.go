package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// AccountIDLength is the hex length of a derived account ID. Changing it
// invalidates every existing per-account store, so it is fixed.
const AccountIDLength = 12

// DeriveAccountID derives the stable identity token for a (username,
// serverURL) pair. Case-insensitive on both inputs; the result is
// filesystem-safe and fixed width.
func DeriveAccountID(username, serverURL string) string {
	seed := strings.ToLower(strings.TrimSpace(username)) + "@" +
		strings.ToLower(strings.TrimSpace(serverURL))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:AccountIDLength]
}

// AccountInfo is identity plus storage addressing for one remote account.
type AccountInfo struct {
	AccountID       string    `json:"account_id"`
	Username        string    `json:"username"`
	ServerURL       string    `json:"server_url"`
	DisplayName     string    `json:"display_name,omitempty"`
	RemoteStoreName string    `json:"remote_store_name"`
	LocalStoreName  string    `json:"local_store_name"`
	LastUsed        time.Time `json:"last_used"`
}

// NewAccountInfo builds an account record with derived id and store names.
func NewAccountInfo(username, serverURL string) AccountInfo {
	id := DeriveAccountID(username, serverURL)
	return AccountInfo{
		AccountID:       id,
		Username:        username,
		ServerURL:       serverURL,
		DisplayName:     username,
		RemoteStoreName: fmt.Sprintf("remote-%s", id),
		LocalStoreName:  fmt.Sprintf("drafts-%s.db", id),
		LastUsed:        time.Now().UTC(),
	}
}

// Touch bumps the most-recently-used timestamp.
func (a *AccountInfo) Touch() {
	a.LastUsed = time.Now().UTC()
}

// Validate checks the record's structural invariants.
func (a AccountInfo) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(a.ServerURL) == "" {
		return fmt.Errorf("server URL is required")
	}
	if a.AccountID != DeriveAccountID(a.Username, a.ServerURL) {
		return fmt.Errorf("account id %q does not match identity", a.AccountID)
	}
	return nil
}
