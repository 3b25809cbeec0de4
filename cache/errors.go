package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cache conditions. Check with errors.Is().
var (
	// ErrNotFound is returned when a key is absent or its entry has expired.
	// Not fatal: callers fall through to computing fresh data.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("cache: store closed")

	// ErrInvalidTTL is returned for zero or negative TTLs.
	ErrInvalidTTL = errors.New("cache: invalid TTL")

	// ErrConfirmationRequired is returned when a destructive maintenance
	// action is attempted without the expected confirmation token.
	ErrConfirmationRequired = errors.New("cache: confirmation token required")
)

// OperationError reports a failed store operation (unreachable database,
// unexpected driver error). Callers treat reads failing with this error as
// misses and must never let it abort the triggering business operation.
type OperationError struct {
	Op  string // operation that failed ("read", "write", "delete_by_tags", ...)
	Key string // cache key involved, empty for bulk operations
	Err error
}

func (e *OperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache operation error: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}

// ConnectionError reports a failure to reach the backing store at all.
// These may be transient and can be retried by the caller.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Address: address, Err: err}
}

// ValidationError reports malformed caller input: an unparseable duration
// string, an empty key, or a malformed tag list. Surfaced immediately and
// never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cache validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
