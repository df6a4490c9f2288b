// Package errors provides a lightweight structured error type (BuildError)
// for category-based classification across the build pipeline and CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a bookbinder error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryCache      ErrorCategory = "cache"
	CategoryExecution  ErrorCategory = "execution"
	CategoryMerge      ErrorCategory = "merge"
	CategoryRender     ErrorCategory = "render"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the build
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// BuildError is a structured error with category, severity, and context
type BuildError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BuildError
type ContextFields map[string]any

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if it is not a BuildError.
func GetCategory(err error) ErrorCategory {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryInternal
}

// ExecutionError creates an execution failure for a document+format pair.
func ExecutionError(err error, document, format string) *BuildError {
	be := Wrap(err, CategoryExecution, SeverityFatal, "document execution failed")
	return be.WithContext("document", document).WithContext("format", format)
}

// MergeInvariantError reports a book item whose execution result is missing
// at merge time. This indicates an orchestration bug, never a user error.
func MergeInvariantError(document, format string) *BuildError {
	be := New(CategoryMerge, SeverityFatal, "book item has no recorded execution result")
	return be.WithContext("document", document).WithContext("format", format)
}

// RenderError creates a renderer failure for a format.
func RenderError(err error, format string) *BuildError {
	return Wrap(err, CategoryRender, SeverityFatal, "renderer failed").WithContext("format", format)
}

// ValidationError creates a new validation error
func ValidationError(message string) *BuildError {
	return &BuildError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}
