package services

import (
	"errors"
	"fmt"

	"transfer-appeal-api/workflow"
)

var (
	// ErrUnauthorized means the caller lacks the role or scope for the operation.
	ErrUnauthorized = errors.New("access denied")
	// ErrNotFound means the referenced record, district or file does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConcurrentModificationError means the record's status changed between read
// and write. Callers re-fetch and decide again; it is never retried here.
type ConcurrentModificationError struct {
	SpecID   uint
	Expected workflow.RequestStatus
	Actual   workflow.RequestStatus
}

func (e *ConcurrentModificationError) Error() string {
	if e.Actual != "" {
		return fmt.Sprintf("spec %d was modified concurrently: expected status %s, found %s", e.SpecID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("spec %d was modified concurrently: expected status %s", e.SpecID, e.Expected)
}

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsConcurrentModification reports whether err is a ConcurrentModificationError.
func IsConcurrentModification(err error) bool {
	var cm *ConcurrentModificationError
	return errors.As(err, &cm)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
