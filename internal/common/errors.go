// Package common carries the error taxonomy, structured logging setup, and
// retry helper shared by the rest of the module.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors the storage and decision layers wrap their failures in.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrTemplate     = errors.New("template rendering failed")

	// ErrGuardUnavailable marks rate-limit state that cannot be read; the
	// engine fails closed on it. ErrSinkUnavailable marks outcome records
	// that never reached storage.
	ErrGuardUnavailable = errors.New("guard unavailable")
	ErrSinkUnavailable  = errors.New("stats sink unavailable")

	ErrAlreadyReviewed = errors.New("feedback already attached")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports which field of a pattern or request failed validation.
type ValidationError struct {
	Err   error
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError wraps a field-level failure into the validation taxonomy.
func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// TemplateError reports an unresolvable placeholder during response rendering.
type TemplateError struct {
	Placeholder string
	PatternID   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("pattern %s: unresolved placeholder {%s}", e.PatternID, e.Placeholder)
}

func (e *TemplateError) Unwrap() error {
	return ErrTemplate
}

// UserError pairs an operator-facing message with its underlying cause.
// Commands wrap setup failures in one so main can print something
// actionable instead of a raw error chain.
type UserError struct {
	Cause   error
	Message string
}

func (e *UserError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// NewUserError wraps cause under a message suitable for terminal output.
func NewUserError(message string, cause error) error {
	return &UserError{Message: message, Cause: cause}
}

// IsRetryable reports whether an operation that failed with err is worth
// another attempt. A RetryableError marker is authoritative. Unmarked
// errors default to retryable, except context cancellation.
func IsRetryable(err error) bool {
	var marked *RetryableError
	if errors.As(err, &marked) {
		return marked.Retryable
	}
	return !errors.Is(err, context.Canceled)
}
