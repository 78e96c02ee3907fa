package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a failure into a user-actionable bucket.
type ErrorCategory string

const (
	ErrCatTimeout        ErrorCategory = "timeout"        // Run exceeded its deadline
	ErrCatNotFound       ErrorCategory = "not_found"      // Agent executable missing
	ErrCatPermission     ErrorCategory = "permission"     // Executable or directory not accessible
	ErrCatAuthentication ErrorCategory = "authentication" // Agent rejected credentials
	ErrCatParsing        ErrorCategory = "parsing"        // Output could not be processed
	ErrCatUnknown        ErrorCategory = "unknown"        // Nothing matched
	ErrCatNetwork        ErrorCategory = "network"        // Connectivity problems
	ErrCatConfiguration  ErrorCategory = "configuration"  // Invalid settings or template
)

// AllErrorCategories lists every category in classification order.
var AllErrorCategories = []ErrorCategory{
	ErrCatTimeout,
	ErrCatNotFound,
	ErrCatPermission,
	ErrCatAuthentication,
	ErrCatParsing,
	ErrCatUnknown,
	ErrCatNetwork,
	ErrCatConfiguration,
}

// ErrBusy is returned when a primary run is already in flight.
// No subprocess is started when it is returned.
var ErrBusy = errors.New("a formatting run is already in progress")

// CategorizedError is the only error shape that leaves the processing core.
type CategorizedError struct {
	Category        ErrorCategory `json:"category"`
	Title           string        `json:"title"`
	Message         string        `json:"message"`
	OriginalMessage string        `json:"original_message"`
	Recoverable     bool          `json:"recoverable"`
	Suggestions     []string      `json:"suggestions"`
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.OriginalMessage != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.OriginalMessage)
	}
	return e.Title
}

// DomainError represents a structured error raised inside the core.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrValidation creates a validation error for bad caller input.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfiguration,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrConfiguration creates an invalid-configuration error.
func ErrConfiguration(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfiguration,
		Code:      code,
		Message:   "invalid configuration: " + message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrTemplateNotFound is raised by the composer when a template lookup misses.
func ErrTemplateNotFound(id string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfiguration,
		Code:      CodeTemplateNotFound,
		Message:   fmt.Sprintf("Template not found: %s", id),
		Retryable: false,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrExecution creates a subprocess failure error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatUnknown,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Recoverable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatUnknown
}

// Predefined error codes
const (
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeUnknownAgent     = "UNKNOWN_AGENT"
	CodeNoExecutable     = "NO_EXECUTABLE"
	CodeBadWorkDir       = "BAD_WORK_DIR"
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeNoSession        = "NO_SESSION"
	CodePreflightFailed  = "PREFLIGHT_FAILED"
	CodeAgentFailed      = "AGENT_FAILED"
)
