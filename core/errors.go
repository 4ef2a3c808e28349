package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a buffered memory id does not exist or was
// already resolved. Callers surface it; it is never retried.
var ErrNotFound = errors.New("buffered memory not found")

// ValidationError marks a malformed candidate. Invalid candidates are
// rejected before scoring.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %s", e.Message)
}

// StorageError wraps a store failure. Batch processing recovers from it
// locally via the keep->buffer->reject fallback chain; it never aborts
// sibling candidates.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
