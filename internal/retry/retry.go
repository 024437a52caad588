// Package retry classifies transfer errors and computes backoff delays.
// Everything here is pure; the orchestrator owns the actual sleeping.
package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

// Class is the retry classification of an error.
type Class int

const (
	// Retryable errors may succeed on a later attempt (timeouts, connect
	// failures, server-side errors). Unknown errors land here too.
	Retryable Class = iota

	// NonRetryable errors will not be fixed by waiting (auth failures,
	// client errors). Retrying them only delays surfacing the real cause.
	NonRetryable
)

// Classify maps an error to its retry class.
func Classify(err error) Class {
	if err == nil {
		return NonRetryable
	}

	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.StatusCode == http.StatusForbidden,
			apiErr.StatusCode == http.StatusBadRequest,
			apiErr.StatusCode == http.StatusNotFound:
			return NonRetryable
		case apiErr.StatusCode >= 500:
			return Retryable
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return Retryable
		case apiErr.StatusCode >= 400:
			return NonRetryable
		}
	}

	// Optimistic default: unclassified errors are worth another attempt.
	return Retryable
}

// IsTimeoutLike reports whether the failure looks like a network timeout.
// Used only to pick the backoff multiplier, never to decide retryability.
func IsTimeoutLike(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return false
	}

	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusGatewayTimeout ||
			apiErr.StatusCode == http.StatusRequestTimeout
	}

	return false
}

// Policy computes backoff delays for consecutive upload attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewPolicy creates a policy with the given budget.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// ShouldRetry reports whether another attempt is allowed after a failure
// on the given 1-based attempt number.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return Classify(err) == Retryable
}

// Delay returns the sleep before the attempt following the given 1-based
// attempt number. Timeout-like failures double the base so a congested
// link gets more breathing room.
func (p Policy) Delay(attempt int, timeoutLike bool) time.Duration {
	base := p.BaseDelay
	if timeoutLike {
		base *= 2
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
