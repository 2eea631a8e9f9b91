package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMappingNotFound    = errors.New("mapping not found")
	ErrDuplicateReference = errors.New("mapping for reference already exists")
	ErrDuplicateCounter   = errors.New("mapping for counter already exists")
)

// Failure kinds carried by OperationFailedError. Match them with errors.Is.
var (
	ErrPublisherFailure = errors.New("publisher failure")
	ErrStoreFailure     = errors.New("store failure")
	ErrLockFailure      = errors.New("lock failure")
)

// OperationFailedError is returned when processing a single event fails.
// It matches its Kind sentinel and its Cause via errors.Is.
type OperationFailedError struct {
	Kind        error
	ReferenceID string
	Op          string
	Cause       error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation failed: %s (%v) for message %s: %v", e.Op, e.Kind, e.ReferenceID, e.Cause)
}

func (e *OperationFailedError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// KindLabel returns a short label for metrics.
func (e *OperationFailedError) KindLabel() string {
	switch {
	case errors.Is(e.Kind, ErrPublisherFailure):
		return "publisher"
	case errors.Is(e.Kind, ErrStoreFailure):
		return "store"
	case errors.Is(e.Kind, ErrLockFailure):
		return "lock"
	default:
		return "unknown"
	}
}
