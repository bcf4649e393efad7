// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidInput      = errors.New("input validation failed")
	ErrReportUnavailable = errors.New("report unavailable")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrNotConfirmed      = errors.New("operation not confirmed")
	ErrCacheMiss         = errors.New("cache miss")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match any validation failure with ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ReportError represents a failure to load the daily candidate report.
// StatusCode is zero when the failure happened before a response arrived
// or while decoding the body.
type ReportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ReportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("report error [%s]: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("report error [%s]: %v", e.URL, e.Err)
}

func (e *ReportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReportUnavailable}
	}
	return []error{ErrReportUnavailable, e.Err}
}

// NewReportError creates a new ReportError.
func NewReportError(url string, statusCode int, err error) *ReportError {
	return &ReportError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// StorageError annotates an engine error with the collection and operation
// it came from. The engine error is kept intact for errors.Is/As.
type StorageError struct {
	Collection string
	Operation  string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s] %s: %v", e.Collection, e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(collection, operation string, err error) *StorageError {
	return &StorageError{
		Collection: collection,
		Operation:  operation,
		Err:        err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
