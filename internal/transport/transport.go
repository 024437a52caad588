package transport

import (
	"context"
	"time"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// RemoteDataClient is the upload/download surface against the remote
// aggregation server. Staging is idempotent: staging the same value key
// twice replaces the earlier value.
type RemoteDataClient interface {
	// Stage submits one value to the local working set.
	Stage(ctx context.Context, value models.DataValue) error

	// BulkUpload transmits all staged values in one network operation.
	// The staged set is cleared only on success.
	BulkUpload(ctx context.Context, timeout time.Duration) (*models.UploadSummary, error)

	// BulkDownload pulls fresh remote data for recently uploaded
	// instances. Best-effort from the orchestrator's point of view.
	BulkDownload(ctx context.Context, timeout time.Duration) error

	// SetCredentials sets the basic-auth identity for subsequent calls.
	SetCredentials(username, password string)

	// Close releases connections.
	Close() error
}

// SessionProvider resolves the authenticated session, if any.
type SessionProvider interface {
	// IsSessionActive reports whether an authenticated session exists.
	IsSessionActive() bool

	// CurrentClient returns the client bound to the active session, or
	// nil when no session exists.
	CurrentClient() RemoteDataClient
}
