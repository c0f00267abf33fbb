package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a task id absent from the store. Toggle and delete treat
// it as already satisfied.
var ErrNotFound = errors.New("task not found")

// ValidationError is bad user input. It is recovered at the command boundary
// and shown to the user as a transient message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SyncError is a failed subscription or remote write. It is never fatal:
// the last known-good snapshot stays readable.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsSync reports whether err is or wraps a SyncError.
func IsSync(err error) bool {
	var s *SyncError
	return errors.As(err, &s)
}
