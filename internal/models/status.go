package models

import "time"

// SyncPhase names the orchestrator's observable states.
type SyncPhase string

const (
	PhaseIdle      SyncPhase = "idle"
	PhaseRunning   SyncPhase = "running"
	PhaseSucceeded SyncPhase = "succeeded"
	PhaseFailed    SyncPhase = "failed"
)

// SyncStatus is the orchestrator's published snapshot. Instances are
// immutable once published; transitions replace the whole value.
type SyncStatus struct {
	Phase           SyncPhase  `json:"phase"`
	IsRunning       bool       `json:"is_running"`
	QueueSize       int        `json:"queue_size"`
	LastAttempt     *time.Time `json:"last_attempt,omitempty"`
	LastSuccess     *time.Time `json:"last_success,omitempty"`
	FailedAttempts  int        `json:"failed_attempts"`
	Error           string     `json:"error,omitempty"`
	UploadedValues  int        `json:"uploaded_values"`
	SkippedStaging  int        `json:"skipped_staging"`
}

// WithQueueSize returns a copy with an updated queue size.
func (s SyncStatus) WithQueueSize(n int) SyncStatus {
	s.QueueSize = n
	return s
}

// HasError reports whether a user-facing failure message is present.
func (s SyncStatus) HasError() bool {
	return s.Error != ""
}
