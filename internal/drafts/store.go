package drafts

import (
	"errors"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// Store is the durable queue of not-yet-confirmed edits for one account.
// Intentionally dumb: no network access, no retry logic, so the
// orchestrator's correctness reasoning only has to cover "write failed".
type Store interface {
	// Upsert inserts or replaces a draft by its natural key.
	Upsert(draft models.Draft) error

	// ListAll returns every queued draft, oldest edit first.
	ListAll() ([]models.Draft, error)

	// ListForInstance returns drafts inside one form instance scope.
	ListForInstance(scope models.InstanceScope) ([]models.Draft, error)

	// Delete removes one draft by natural key.
	Delete(key models.DraftKey) error

	// DeleteAll drains the queue without uploading.
	DeleteAll() error

	// Count returns the number of queued drafts.
	Count() (int, error)

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrDraftNotFound = errors.New("draft not found")
)
