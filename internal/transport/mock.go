package transport

import (
	"context"
	"sync"
	"time"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// MockClient provides a scriptable RemoteDataClient for testing.
type MockClient struct {
	mu sync.Mutex

	staged []models.DataValue

	// StageErrFor fails staging for matching data elements.
	StageErrFor map[string]error

	// UploadErrs is consumed one per BulkUpload call; nil entries and
	// calls past the end succeed.
	UploadErrs []error

	// DownloadErr fails BulkDownload when set.
	DownloadErr error

	// UploadDelay simulates a slow upload (observes ctx cancellation).
	UploadDelay time.Duration

	UploadCalls   int
	DownloadCalls int

	// Uploaded records the staged set of each successful upload.
	Uploaded [][]models.DataValue
}

// NewMockClient creates a mock remote data client.
func NewMockClient() *MockClient {
	return &MockClient{
		StageErrFor: make(map[string]error),
	}
}

// Stage records the value, or fails when scripted to.
func (m *MockClient) Stage(ctx context.Context, value models.DataValue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.StageErrFor[value.DataElement]; ok {
		return err
	}

	m.staged = append(m.staged, value)
	return nil
}

// BulkUpload consumes the next scripted outcome.
func (m *MockClient) BulkUpload(ctx context.Context, timeout time.Duration) (*models.UploadSummary, error) {
	m.mu.Lock()
	call := m.UploadCalls
	m.UploadCalls++
	delay := m.UploadDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if call < len(m.UploadErrs) && m.UploadErrs[call] != nil {
		return nil, m.UploadErrs[call]
	}

	uploaded := make([]models.DataValue, len(m.staged))
	copy(uploaded, m.staged)
	m.Uploaded = append(m.Uploaded, uploaded)
	m.staged = nil

	return &models.UploadSummary{Status: "OK", Imported: len(uploaded)}, nil
}

// BulkDownload succeeds unless scripted otherwise.
func (m *MockClient) BulkDownload(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.DownloadCalls++
	return m.DownloadErr
}

// SetCredentials is a no-op for the mock.
func (m *MockClient) SetCredentials(username, password string) {}

// Close is a no-op for the mock.
func (m *MockClient) Close() error { return nil }

// StagedCount returns the current working set size.
func (m *MockClient) StagedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// MockSession provides a scriptable SessionProvider.
type MockSession struct {
	Active bool
	Client RemoteDataClient
}

// IsSessionActive reports the scripted state.
func (m *MockSession) IsSessionActive() bool { return m.Active }

// CurrentClient returns the scripted client.
func (m *MockSession) CurrentClient() RemoteDataClient {
	if !m.Active {
		return nil
	}
	return m.Client
}
