// Package client wires configuration into the service graph.
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/HISP-Uganda/entrysync/internal/account"
	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/drafts"
	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
	"github.com/HISP-Uganda/entrysync/internal/netmon"
	"github.com/HISP-Uganda/entrysync/internal/services/syncer"
	"github.com/HISP-Uganda/entrysync/internal/transport"
)

// Client is the high-level entry point used by the CLI.
type Client struct {
	Accounts *account.Registry
	Monitor  netmon.Signal
	Remote   *transport.HTTPClient

	cfg     *config.Config
	logger  *events.Logger
	session *session

	mu           sync.Mutex
	draftStore   drafts.Store
	orchestrator *syncer.Orchestrator
	autoCancel   context.CancelFunc
}

// New creates a client from config. No account session is open yet;
// call OpenSession after resolving the active account.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	accountStore, err := account.NewJSONStore(cfg.Storage.AccountsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}

	remote := transport.NewHTTPClient(&cfg.API, logger)

	return &Client{
		Accounts: account.NewRegistry(accountStore, logger),
		Monitor:  netmon.NewMonitor(&cfg.Network, logger),
		Remote:   remote,
		cfg:      cfg,
		logger:   logger,
		session:  &session{},
	}, nil
}

// OpenSession binds the client to one account: credentials on the
// remote client, the account's own draft database, and a fresh
// orchestrator. Switching accounts closes the previous session first so
// two accounts never share mutable state.
func (c *Client) OpenSession(info models.AccountInfo, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draftStore != nil {
		if err := c.closeSessionLocked(); err != nil {
			return err
		}
	}

	c.Remote.SetBaseURL(info.ServerURL)
	c.Remote.SetCredentials(info.Username, password)

	dbPath := filepath.Join(c.cfg.Storage.DataDir, info.LocalStoreName)
	store, err := drafts.NewSQLiteStore(dbPath, c.logger)
	if err != nil {
		return fmt.Errorf("open draft store: %w", err)
	}

	c.session.open(c.Remote)
	c.draftStore = store
	c.orchestrator = syncer.New(store, c.session, c.Monitor, &syncer.Config{
		MaxRetryAttempts: c.cfg.Sync.MaxRetryAttempts,
		BaseRetryDelay:   c.cfg.Sync.BaseRetryDelay,
		MaxRetryDelay:    c.cfg.Sync.MaxRetryDelay,
		UploadTimeout:    c.cfg.Sync.UploadTimeout,
		DownloadTimeout:  c.cfg.Sync.DownloadTimeout,
	}, c.logger)

	ctx, cancel := context.WithCancel(context.Background())
	c.autoCancel = cancel
	go c.orchestrator.RunAutoSync(ctx)

	c.logger.WithField("account_id", info.AccountID).Debug("Session opened")
	return nil
}

// OpenLocal binds the client to an account's local draft store without
// opening a network session. Used for queue inspection while offline.
func (c *Client) OpenLocal(info models.AccountInfo) (drafts.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draftStore != nil {
		return c.draftStore, nil
	}

	dbPath := filepath.Join(c.cfg.Storage.DataDir, info.LocalStoreName)
	store, err := drafts.NewSQLiteStore(dbPath, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	c.draftStore = store
	return store, nil
}

// Sync returns the orchestrator for the open session.
func (c *Client) Sync() (*syncer.Orchestrator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.orchestrator == nil {
		return nil, models.ErrNoSession
	}
	return c.orchestrator, nil
}

// Drafts returns the draft store for the open session.
func (c *Client) Drafts() (drafts.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draftStore == nil {
		return nil, models.ErrNoSession
	}
	return c.draftStore, nil
}

// RemoveAccountData discards an account's local draft database. Called
// after the registry entry has been removed.
func (c *Client) RemoveAccountData(info models.AccountInfo) error {
	path := filepath.Join(c.cfg.Storage.DataDir, info.LocalStoreName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove draft store: %w", err)
	}
	return nil
}

// Close shuts down the session and background listeners.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.closeSessionLocked()
	c.Monitor.Close()
	if cerr := c.Remote.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) closeSessionLocked() error {
	if c.autoCancel != nil {
		c.autoCancel()
		c.autoCancel = nil
	}
	c.session.close()
	c.orchestrator = nil

	if c.draftStore != nil {
		if err := c.draftStore.Close(); err != nil {
			return fmt.Errorf("close draft store: %w", err)
		}
		c.draftStore = nil
	}
	return nil
}

// session implements transport.SessionProvider over the open account.
type session struct {
	mu     sync.Mutex
	client transport.RemoteDataClient
}

func (s *session) open(client transport.RemoteDataClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
}

// IsSessionActive reports whether an account session is open.
func (s *session) IsSessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// CurrentClient returns the session's remote client, or nil.
func (s *session) CurrentClient() transport.RemoteDataClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}
