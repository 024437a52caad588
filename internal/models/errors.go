package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeSession = "SESSION_ERROR"
	ErrCodeNetwork = "NETWORK_ERROR"
	ErrCodeStaging = "STAGING_ERROR"
	ErrCodeUpload  = "UPLOAD_ERROR"
	ErrCodeStorage = "STORAGE_ERROR"
	ErrCodeAccount = "ACCOUNT_ERROR"
	ErrCodeConfig  = "CONFIG_ERROR"
)

// Sentinel errors
var (
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrNoSession       = errors.New("no authenticated session")
	ErrOffline         = errors.New("device is offline")
	ErrConnectionLost  = errors.New("connection lost during retry")
	ErrNoActiveAccount = errors.New("no active account")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// APIError represents an error returned by the remote server.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// SyncError carries the phase and code of a sync cycle failure.
type SyncError struct {
	Code      string
	Phase     string
	AccountID string
	Err       error
}

func (e *SyncError) Error() string {
	if e.AccountID != "" {
		return fmt.Sprintf("sync %s [%s]: account %s: %v", e.Phase, e.Code, e.AccountID, e.Err)
	}
	return fmt.Sprintf("sync %s [%s]: %v", e.Phase, e.Code, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// StorageError distinguishes local persistence failures from network
// failures so the surfaced message does not blame the connection.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
