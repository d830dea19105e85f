// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrSessionNotFound indicates the requested interview session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCourseNotFound indicates no catalog course matches the given id or title.
	ErrCourseNotFound = errors.New("course not found")

	// ErrCatalogUnavailable indicates the course catalog could not be loaded.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrOracleDisabled indicates the language model is disabled for this
	// session (exhausted quota) and no calls may be made until reset.
	ErrOracleDisabled = errors.New("oracle disabled")

	// ErrTraceNotFound indicates no trace file exists for the session.
	ErrTraceNotFound = errors.New("trace not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// IsSessionNotFound reports whether err is or wraps ErrSessionNotFound.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsCourseNotFound reports whether err is or wraps ErrCourseNotFound.
func IsCourseNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound)
}

// IsRateLimitExceeded reports whether err is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// AsValidationError returns the *ValidationError in err's chain, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
