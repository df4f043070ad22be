package monitor

import (
	"errors"
	"fmt"
)

// ValidationError rejects a whole ingestion batch. Index points at the first
// offending entry, -1 when the failure concerns the batch itself.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid batch: %s", e.Reason)
	}
	return fmt.Sprintf("invalid metric at index %d: %s %s", e.Index, e.Field, e.Reason)
}

func newValidationError(index int, field, reason string) *ValidationError {
	return &ValidationError{Index: index, Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a batch validation failure
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError marks a failed write or query against the metric store. It is
// fatal for the operation that hit it, there is no partial recovery.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a store failure
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
