// Package errors provides the typed error system used across the bootstrap
// core. Every failure raised by an initializer or an orchestration component
// carries one of four categories, which drive the retry and propagation
// policy: configuration errors fail fast, connectivity errors are retryable,
// resource errors are fatal environment problems, and usage errors are
// programmer mistakes that always surface immediately.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of error for handling and retry decisions.
type ErrorType string

const (
	// ErrorTypeConfiguration marks a missing or invalid configuration value.
	// Never retried.
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeConnectivity marks a transient reachability failure.
	// Retried with backoff up to the configured limit.
	ErrorTypeConnectivity ErrorType = "CONNECTIVITY"

	// ErrorTypeResource marks a fatal environment or logic problem, such as
	// a permission mismatch or transaction misuse. Never retried.
	ErrorTypeResource ErrorType = "RESOURCE"

	// ErrorTypeUsage marks an operation called out of its valid lifecycle
	// order. Always raised immediately, never swallowed.
	ErrorTypeUsage ErrorType = "USAGE"
)

// BootError is the error type shared by all bootstrap components.
type BootError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BootError) Error() string {
	switch {
	case e.Code != "" && e.Err != nil:
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Err)
	case e.Code != "":
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *BootError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the retry policy may re-attempt the operation
// that produced this error.
func (e *BootError) Retryable() bool {
	return e.Type == ErrorTypeConnectivity
}

// Constructor functions for each category.

// NewConfiguration creates a configuration error.
func NewConfiguration(message string) error {
	return &BootError{Type: ErrorTypeConfiguration, Message: message}
}

// NewConfigurationf creates a configuration error with formatting.
func NewConfigurationf(format string, args ...any) error {
	return &BootError{Type: ErrorTypeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewConnectivity creates a transient connectivity error wrapping the
// driver-level cause.
func NewConnectivity(message string, err error) error {
	return &BootError{Type: ErrorTypeConnectivity, Message: message, Err: err}
}

// NewConnectivityf creates a transient connectivity error with formatting.
func NewConnectivityf(format string, args ...any) error {
	return &BootError{Type: ErrorTypeConnectivity, Message: fmt.Sprintf(format, args...)}
}

// NewResource creates a fatal resource error.
func NewResource(message string, err error) error {
	return &BootError{Type: ErrorTypeResource, Message: message, Err: err}
}

// NewResourcef creates a fatal resource error with formatting.
func NewResourcef(format string, args ...any) error {
	return &BootError{Type: ErrorTypeResource, Message: fmt.Sprintf(format, args...)}
}

// NewUsage creates a usage error.
func NewUsage(message string) error {
	return &BootError{Type: ErrorTypeUsage, Message: message}
}

// NewUsagef creates a usage error with formatting.
func NewUsagef(format string, args ...any) error {
	return &BootError{Type: ErrorTypeUsage, Message: fmt.Sprintf(format, args...)}
}

// WithCode attaches a machine-readable code to err when it is a BootError,
// and returns err unchanged otherwise.
func WithCode(err error, code string) error {
	var be *BootError
	if errors.As(err, &be) {
		be.Code = code
	}
	return err
}

// Wrap wraps an error with additional context, preserving its category when
// it is already a BootError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var be *BootError
	if errors.As(err, &be) {
		return &BootError{
			Type:    be.Type,
			Code:    be.Code,
			Message: fmt.Sprintf("%s: %s", message, be.Message),
			Err:     be.Err,
		}
	}
	return &BootError{Type: ErrorTypeResource, Message: message, Err: err}
}

// Type checking functions.

// TypeOf returns the category of err, or an empty string for foreign errors.
func TypeOf(err error) ErrorType {
	var be *BootError
	if errors.As(err, &be) {
		return be.Type
	}
	return ""
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return TypeOf(err) == ErrorTypeConfiguration
}

// IsConnectivity checks if an error is a transient connectivity error.
func IsConnectivity(err error) bool {
	return TypeOf(err) == ErrorTypeConnectivity
}

// IsResource checks if an error is a fatal resource error.
func IsResource(err error) bool {
	return TypeOf(err) == ErrorTypeResource
}

// IsUsage checks if an error is a usage error.
func IsUsage(err error) bool {
	return TypeOf(err) == ErrorTypeUsage
}

// IsRetryable reports whether the retry policy may re-attempt after err.
// Foreign (non BootError) errors are treated as retryable connectivity
// failures, because drivers surface transient network problems as their own
// error types.
func IsRetryable(err error) bool {
	var be *BootError
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return err != nil
}
