// Package apperr defines the error taxonomy shared by all modules.
//
// Services wrap causes with fmt.Errorf("...: %w", err) so handlers can map an
// error to an HTTP status with errors.Is instead of string matching.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing shop, job, printer or allocation.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a rejected conditional update: printer busy, job
	// already claimed, allocation already collected, and so on.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition marks a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation marks a malformed request from a caller.
	ErrValidation = errors.New("validation failed")
)

// NotFound wraps ErrNotFound with context.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflict wraps ErrConflict with context.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// InvalidTransition wraps ErrInvalidTransition with context.
func InvalidTransition(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidTransition)
}

// Validation wraps ErrValidation with context.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is (or wraps) ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
