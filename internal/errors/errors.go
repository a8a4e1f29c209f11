// Package errors provides a lightweight structured error type (SubsyncError)
// for category-based classification and retry semantics in the CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a subsync error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// External system integration errors
	CategoryNetwork ErrorCategory = "network"
	CategoryGit     ErrorCategory = "git"

	// Runtime and infrastructure errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryRuntime    ErrorCategory = "runtime"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// SubsyncError is a structured error with category, retryability, and context
type SubsyncError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SubsyncError
type ContextFields map[string]any

// Error implements the error interface
func (e *SubsyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *SubsyncError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SubsyncError) WithContext(key string, value any) *SubsyncError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new SubsyncError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SubsyncError {
	return &SubsyncError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new SubsyncError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SubsyncError {
	return &SubsyncError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable SubsyncError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *SubsyncError {
	return &SubsyncError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if se, ok := err.(*SubsyncError); ok {
		return se.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if se, ok := err.(*SubsyncError); ok {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a SubsyncError
func GetCategory(err error) ErrorCategory {
	if se, ok := err.(*SubsyncError); ok {
		return se.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *SubsyncError {
	return &SubsyncError{
		Category: CategoryValidation,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// ConfigError creates a new configuration error
func ConfigError(message string) *SubsyncError {
	return &SubsyncError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
	}
}
