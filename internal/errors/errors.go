// Package apperrors defines the structured error types shared by the
// command line, the orchestrator and the HTTP server, and maps them to
// process exit codes.
//
// All wrapping types implement Unwrap so that errors.Is and errors.As see
// through them.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes.
const (
	ExitSuccess       = 0   // Successful execution.
	ExitErrorGeneric  = 1   // Any error not covered below.
	ExitErrorTimeout  = 2   // The execution limit was reached.
	ExitErrorMismatch = 3   // Two algorithms (or a record and its index) disagree.
	ExitErrorConfig   = 4   // Invalid flags, environment or config file.
	ExitErrorCanceled = 130 // Interrupted, e.g. by SIGINT.
)

// ConfigError reports invalid user configuration. The application cannot
// proceed when it is returned.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// CalculationError wraps the failure of one algorithm run.
type CalculationError struct {
	// Algorithm is the registered name of the algorithm, if known.
	Algorithm string
	// Cause is the underlying error.
	Cause error
}

func (e CalculationError) Error() string {
	if e.Algorithm != "" {
		return fmt.Sprintf("%s: %v", e.Algorithm, e.Cause)
	}
	return e.Cause.Error()
}

func (e CalculationError) Unwrap() error { return e.Cause }

// MismatchError reports two results for the same index that should be equal
// and are not. Expected and Got are the formatted pairs.
type MismatchError struct {
	N         uint64
	Algorithm string
	Expected  string
	Got       string
}

func (e MismatchError) Error() string {
	if e.Algorithm != "" {
		return fmt.Sprintf("result mismatch for n=%d (%s): expected %s, got %s", e.N, e.Algorithm, e.Expected, e.Got)
	}
	return fmt.Sprintf("result mismatch for n=%d: expected %s, got %s", e.N, e.Expected, e.Got)
}

// ServerError is an error of the HTTP server component.
type ServerError struct {
	Message string
	Cause   error
}

func (e ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a ServerError. cause may be nil.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// ValidationError reports invalid input, either from an API request or from
// configuration.
type ValidationError struct {
	// Field is the name of the offending field.
	Field string
	// Message describes why validation failed.
	Message string
	// Value is the rejected value, if useful.
	Value any
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}

// WrapError adds context to err with fmt.Errorf and %w. It returns nil when
// err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError reports whether err is a context cancellation or deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	var (
		mismatch   MismatchError
		config     ConfigError
		validation ValidationError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	case errors.As(err, &mismatch):
		return ExitErrorMismatch
	case errors.As(err, &config), errors.As(err, &validation):
		return ExitErrorConfig
	default:
		return ExitErrorGeneric
	}
}
