package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRequestTimeout = errors.New("request timeout")
)

// ValidationError rejects malformed input before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidInput, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceWarning reports that a request log could not be written. It travels
// beside the Outcome and never replaces it.
type PersistenceWarning struct {
	Err error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("request log not persisted: %v", w.Err)
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}
