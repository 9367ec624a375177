package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the analytics components. Callers wrap them with
// fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	// ErrNotFound is returned when a referenced error record is absent
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for unusable request parameters
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamUnavailable is returned when the record store cannot be read
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvariantViolation marks an internal consistency failure. The
	// request is aborted and nothing is published.
	ErrInvariantViolation = errors.New("invariant violation")
)

// ValidationError describes why a single record was rejected
type ValidationError struct {
	message string
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf(format, args...),
	}
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return e.message
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
