// Package syncer drives the offline sync cycle: drain the draft queue,
// stage values with the remote client, upload once with retry/backoff,
// delete confirmed drafts, then pull fresh data best-effort.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/HISP-Uganda/entrysync/internal/drafts"
	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
	"github.com/HISP-Uganda/entrysync/internal/netmon"
	"github.com/HISP-Uganda/entrysync/internal/retry"
	"github.com/HISP-Uganda/entrysync/internal/transport"
)

// Config contains orchestrator tuning.
type Config struct {
	MaxRetryAttempts int
	BaseRetryDelay   time.Duration
	MaxRetryDelay    time.Duration
	UploadTimeout    time.Duration
	DownloadTimeout  time.Duration
}

// Orchestrator owns the sync state machine. At most one cycle runs at a
// time; a forced start cancels and supersedes the cycle in flight.
type Orchestrator struct {
	drafts  drafts.Store
	session transport.SessionProvider
	signal  netmon.Signal
	policy  retry.Policy
	logger  *events.Logger

	uploadTimeout   time.Duration
	downloadTimeout time.Duration

	// status holds the latest models.SyncStatus snapshot.
	status atomic.Value

	mu        sync.Mutex
	running   bool
	cancelFn  context.CancelFunc
	cycleDone chan struct{}
	observers []chan models.SyncStatus
}

// New creates a sync orchestrator.
func New(
	draftStore drafts.Store,
	session transport.SessionProvider,
	signal netmon.Signal,
	cfg *Config,
	logger *events.Logger,
) *Orchestrator {
	o := &Orchestrator{
		drafts:          draftStore,
		session:         session,
		signal:          signal,
		policy:          retry.NewPolicy(cfg.MaxRetryAttempts, cfg.BaseRetryDelay, cfg.MaxRetryDelay),
		logger:          logger.WithField("component", "sync_orchestrator"),
		uploadTimeout:   cfg.UploadTimeout,
		downloadTimeout: cfg.DownloadTimeout,
	}

	o.status.Store(models.SyncStatus{Phase: models.PhaseIdle})
	return o
}

// Status returns the latest published snapshot.
func (o *Orchestrator) Status() models.SyncStatus {
	return o.status.Load().(models.SyncStatus)
}

// Observe registers a status listener. Snapshots are immutable; slow
// observers miss intermediate transitions rather than blocking the cycle.
func (o *Orchestrator) Observe() <-chan models.SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan models.SyncStatus, 16)
	o.observers = append(o.observers, ch)
	return ch
}

// StartSync runs one sync cycle over the whole draft queue. It blocks
// until the cycle finishes; fire-and-forget callers run it in a
// goroutine and watch Observe.
func (o *Orchestrator) StartSync(ctx context.Context, force bool) error {
	return o.startCycle(ctx, models.InstanceScope{}, force)
}

// StartSyncForInstance runs an identical cycle narrowed to one form
// instance. Drafts outside the scope stay queued and untouched.
func (o *Orchestrator) StartSyncForInstance(ctx context.Context, scope models.InstanceScope, force bool) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("invalid instance scope: %w", err)
	}
	return o.startCycle(ctx, scope, force)
}

// Cancel requests cooperative cancellation of the in-flight cycle.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancelFn != nil {
		o.logger.Info("Cancelling sync cycle")
		o.cancelFn()
	}
}

// ClearQueue drains all drafts for the active account without uploading.
// Destructive; callers confirm with the user first.
func (o *Orchestrator) ClearQueue() error {
	if err := o.drafts.DeleteAll(); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}

	status := o.Status()
	status.QueueSize = 0
	o.publish(status)
	return nil
}

// RunAutoSync consumes connectivity transitions and triggers a cycle
// when the device comes online with a non-empty queue. It never forces:
// an already running cycle is left alone. Blocks until ctx is done or
// the signal closes.
func (o *Orchestrator) RunAutoSync(ctx context.Context) {
	transitions := o.signal.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-transitions:
			if !ok {
				return
			}
			if !online {
				continue
			}

			count, err := o.drafts.Count()
			if err != nil {
				o.logger.WithError(err).Warn("Auto-sync queue check failed")
				continue
			}
			if count == 0 || o.Status().IsRunning {
				continue
			}

			o.logger.WithField("queue_size", count).Info("Connectivity restored, starting sync")
			if err := o.StartSync(ctx, false); err != nil && !errors.Is(err, models.ErrSyncInProgress) {
				o.logger.WithError(err).Warn("Auto-sync cycle failed")
			}
		}
	}
}

// startCycle enforces the single-cycle invariant and runs one cycle.
func (o *Orchestrator) startCycle(ctx context.Context, scope models.InstanceScope, force bool) error {
	o.mu.Lock()
	if o.running {
		if !force {
			o.mu.Unlock()
			return models.ErrSyncInProgress
		}

		// Supersede: cancel the in-flight cycle and wait for it to
		// observe cancellation at its next suspension point.
		cancel := o.cancelFn
		done := o.cycleDone
		o.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if done != nil {
			<-done
		}

		o.mu.Lock()
		if o.running {
			o.mu.Unlock()
			return models.ErrSyncInProgress
		}
	}

	if !o.session.IsSessionActive() {
		o.mu.Unlock()
		return models.ErrNoSession
	}

	if !o.signal.IsOnline() {
		o.mu.Unlock()
		return models.ErrOffline
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.running = true
	o.cancelFn = cancel
	o.cycleDone = done
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancelFn = nil
		o.cycleDone = nil
		o.mu.Unlock()
		close(done)
	}()

	return o.runCycle(ctx, scope)
}

// runCycle executes the stage / upload / download phases.
func (o *Orchestrator) runCycle(ctx context.Context, scope models.InstanceScope) error {
	cycleID := uuid.NewString()
	logger := o.logger.WithField("cycle_id", cycleID)
	now := time.Now().UTC()

	prev := o.Status()
	status := models.SyncStatus{
		Phase:          models.PhaseRunning,
		IsRunning:      true,
		LastAttempt:    &now,
		LastSuccess:    prev.LastSuccess,
		FailedAttempts: prev.FailedAttempts,
	}

	client := o.session.CurrentClient()
	if client == nil {
		return models.ErrNoSession
	}

	// Read the queue (or the narrowed scope).
	var (
		queued []models.Draft
		err    error
	)
	if scope.IsZero() {
		queued, err = o.drafts.ListAll()
	} else {
		queued, err = o.drafts.ListForInstance(scope)
	}
	if err != nil {
		return o.fail(logger, status, "local storage error, sync not started", err)
	}

	total, err := o.drafts.Count()
	if err != nil {
		return o.fail(logger, status, "local storage error, sync not started", err)
	}
	status.QueueSize = total
	o.publish(status)

	logger.WithFields(map[string]interface{}{
		"queued": len(queued),
		"scoped": !scope.IsZero(),
	}).Info("Starting sync cycle")

	// Empty queue: immediate success, no network call.
	if len(queued) == 0 {
		status.Phase = models.PhaseSucceeded
		status.IsRunning = false
		status.QueueSize = total
		status.Error = ""
		o.publish(status)
		logger.Info("Nothing to sync")
		return nil
	}

	// Stage phase. Failures are non-fatal: the draft stays queued and is
	// retried on the next cycle.
	staged := make([]models.Draft, 0, len(queued))
	for _, d := range queued {
		if err := ctx.Err(); err != nil {
			return o.abort(logger, err)
		}

		if err := client.Stage(ctx, d.ToDataValue()); err != nil {
			logger.WithError(err).WithFields(map[string]interface{}{
				"data_element": d.DataElement,
				"period":       d.Period,
			}).Warn("Failed to stage value")
			status.SkippedStaging++
			continue
		}
		staged = append(staged, d)
	}

	if len(staged) == 0 {
		status.FailedAttempts++
		return o.fail(logger, status, "no values could be staged for upload",
			&models.SyncError{Code: models.ErrCodeStaging, Phase: "stage", Err: errors.New("all staged values rejected")})
	}

	// Upload phase: one bulk call under the retry budget.
	summary, err := o.uploadWithRetry(ctx, client, logger)
	if err != nil {
		if isCancellation(err) {
			return o.abort(logger, err)
		}
		status.FailedAttempts++
		return o.fail(logger, status, uploadErrorMessage(err), err)
	}

	// Commit point: drafts are deleted only after the confirmed upload.
	deleted := 0
	for _, d := range staged {
		if err := o.drafts.Delete(d.DraftKey); err != nil && !errors.Is(err, drafts.ErrDraftNotFound) {
			// The value is already on the server; staging is idempotent,
			// so re-uploading on the next cycle is harmless.
			logger.WithError(err).Warn("Failed to delete confirmed draft")
			continue
		}
		deleted++
	}

	logger.WithFields(map[string]interface{}{
		"uploaded": len(staged),
		"deleted":  deleted,
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"ignored":  summary.Ignored,
	}).Info("Upload confirmed")

	// Download phase: best-effort, never escalated. Upload durability is
	// already achieved.
	if err := client.BulkDownload(ctx, o.downloadTimeout); err != nil {
		if isCancellation(err) {
			return o.abort(logger, err)
		}
		logger.WithError(err).Warn("Follow-up download failed")
	}

	remaining, err := o.drafts.Count()
	if err != nil {
		logger.WithError(err).Warn("Failed to count remaining drafts")
		remaining = status.QueueSize - deleted
	}

	success := time.Now().UTC()
	status.Phase = models.PhaseSucceeded
	status.IsRunning = false
	status.QueueSize = remaining
	status.LastSuccess = &success
	status.FailedAttempts = 0
	status.Error = ""
	status.UploadedValues = len(staged)
	o.publish(status)

	logger.WithField("remaining", remaining).Info("Sync cycle completed")
	return nil
}

// uploadWithRetry wraps the single bulk upload in the backoff loop. Each
// attempt gets a fresh timeout budget.
func (o *Orchestrator) uploadWithRetry(
	ctx context.Context,
	client transport.RemoteDataClient,
	logger *events.Logger,
) (*models.UploadSummary, error) {
	var lastErr error

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		summary, err := client.BulkUpload(ctx, o.uploadTimeout)
		if err == nil {
			return summary, nil
		}
		if isCancellation(ctx.Err()) {
			return nil, ctx.Err()
		}

		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Warn("Upload attempt failed")

		if !o.policy.ShouldRetry(attempt, err) {
			return nil, err
		}

		// Sleeping through a dead link is useless; surface it now and
		// let the connectivity monitor re-trigger the cycle.
		if !o.signal.IsOnline() {
			return nil, models.ErrConnectionLost
		}

		delay := o.policy.Delay(attempt, retry.IsTimeoutLike(err))
		logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
		}).Debug("Backing off before retry")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("upload retries exhausted: %w", lastErr)
}

// fail publishes a failed snapshot with a user-facing message.
func (o *Orchestrator) fail(logger *events.Logger, status models.SyncStatus, msg string, err error) error {
	status.Phase = models.PhaseFailed
	status.IsRunning = false
	status.Error = msg
	o.publish(status)

	logger.WithError(err).Error("Sync cycle failed")
	return err
}

// abort exits a cancelled cycle without recording a failure. Nothing
// past the last durable step has been mutated.
func (o *Orchestrator) abort(logger *events.Logger, err error) error {
	status := o.Status()
	status.Phase = models.PhaseIdle
	status.IsRunning = false
	o.publish(status)

	logger.Info("Sync cycle cancelled")
	return err
}

// publish replaces the snapshot and fans it out to observers.
func (o *Orchestrator) publish(status models.SyncStatus) {
	o.status.Store(status)

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, ch := range o.observers {
		select {
		case ch <- status:
		default:
			// Observer is behind; it will catch up on the next snapshot.
		}
	}
}

func isCancellation(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled))
}

// uploadErrorMessage translates an upload failure into a short,
// actionable message. Raw error text never reaches the user.
func uploadErrorMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return "server rejected the credentials, please sign in again"
		case apiErr.StatusCode == 400 || apiErr.StatusCode == 404:
			return "server rejected the submitted data, please review the entries"
		case apiErr.StatusCode >= 500:
			return "server is unavailable, will retry when possible"
		}
	}

	if errors.Is(err, models.ErrConnectionLost) {
		return "connection lost during retry, sync will resume when online"
	}

	var storageErr *models.StorageError
	if errors.As(err, &storageErr) {
		return "local storage error, please free up space and retry"
	}

	return "upload failed after retries, entries remain queued"
}
