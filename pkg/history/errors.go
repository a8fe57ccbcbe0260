package history

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row, byte array or root instance does not exist.
var ErrNotFound = errors.New("not found")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "pgx", "memory")
	Operation string // Operation that failed ("insert", "backfill", "delete", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ConflictError reports an optimistic locking failure: the row was changed
// or deleted by a concurrent transaction since it was read. It is retryable.
type ConflictError struct {
	Kind     Kind
	ID       string
	Revision int
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("optimistic locking conflict [kind=%s, id=%s, revision=%d]: row was updated or deleted concurrently",
		e.Kind, e.ID, e.Revision)
}

// Retryable marks the conflict as safe to re-run.
func (e *ConflictError) Retryable() bool { return true }

// NewConflictError creates a new ConflictError.
func NewConflictError(kind Kind, id string, revision int) *ConflictError {
	return &ConflictError{Kind: kind, ID: id, Revision: revision}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// failure the caller should re-run.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// BackfillError represents a failed removal-time backfill step.
type BackfillError struct {
	Kind    Kind   // Kind whose statement failed
	ScopeID string // Root, process instance or batch id
	Cause   error
}

// Error implements the error interface.
func (e *BackfillError) Error() string {
	return fmt.Sprintf("backfill error [kind=%s, scope=%s]: %v", e.Kind, e.ScopeID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *BackfillError) Unwrap() error {
	return e.Cause
}

// NewBackfillError creates a new BackfillError.
func NewBackfillError(kind Kind, scopeID string, cause error) *BackfillError {
	return &BackfillError{Kind: kind, ScopeID: scopeID, Cause: cause}
}

// CleanupError represents a failed cleanup step.
type CleanupError struct {
	Kind  Kind      // Kind being cleaned
	Step  string    // Pipeline step name
	Now   time.Time // Cleanup reference time
	Cause error
}

// Error implements the error interface.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup error [kind=%s, step=%s]: %v", e.Kind, e.Step, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CleanupError) Unwrap() error {
	return e.Cause
}

// NewCleanupError creates a new CleanupError.
func NewCleanupError(kind Kind, step string, now time.Time, cause error) *CleanupError {
	return &CleanupError{Kind: kind, Step: step, Now: now, Cause: cause}
}
