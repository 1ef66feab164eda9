package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Errors that mean the caller built something wrong and must not continue
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryPrecondition  ErrorCategory = "PRECONDITION"

	// Errors that come from the input data or its processing
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"
	ErrorCategoryData          ErrorCategory = "DATA"
	ErrorCategoryNormalization ErrorCategory = "NORMALIZATION"
	ErrorCategoryStorage       ErrorCategory = "STORAGE"
)

// Sentinel errors. SimError wraps these so errors.Is keeps working.
var (
	ErrEpisodeDone       = stderrors.New("episode is done, call Reset before Step")
	ErrInvalidAction     = stderrors.New("invalid action")
	ErrInvalidFrameBound = stderrors.New("invalid frame bound")
	ErrInsufficientData  = stderrors.New("insufficient data")
	ErrHoldAtEnd         = stderrors.New("hold is not allowed on the last tick")
)

// SimError represents a categorized error with context
type SimError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *SimError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Category, e.Component, e.Operation)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *SimError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether the error invalidates the simulator or dataset it came from
func (e *SimError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration ||
		e.Category == ErrorCategoryPrecondition
}

// WithContext adds context information to the error
func (e *SimError) WithContext(key string, value interface{}) *SimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewSimError creates a new categorized error
func NewSimError(category ErrorCategory, component, operation, message string) *SimError {
	return &SimError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with category and component
func WrapError(err error, category ErrorCategory, component, operation string) *SimError {
	if err == nil {
		return nil
	}

	return &SimError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors
func NewConfigurationError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryConfiguration, component, operation, message)
}

func NewValidationError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryValidation, component, operation, message)
}

func NewPreconditionError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryPrecondition, component, operation)
}

func NewDataError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

func NewNormalizationError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryNormalization, component, operation)
}

func NewStorageError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

// CategoryOf returns the category of err if it is (or wraps) a SimError
func CategoryOf(err error) (ErrorCategory, bool) {
	var simErr *SimError
	if stderrors.As(err, &simErr) {
		return simErr.Category, true
	}
	return "", false
}

// ColumnErrors aggregates per-column failures so a caller sees every failed column at once
type ColumnErrors map[string]error

// Error implements the error interface
func (c ColumnErrors) Error() string {
	names := c.Columns()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, c[name]))
	}
	return fmt.Sprintf("%d column(s) failed: %s", len(c), strings.Join(parts, "; "))
}

// Unwrap exposes every column error to errors.Is and errors.As
func (c ColumnErrors) Unwrap() []error {
	out := make([]error, 0, len(c))
	for _, name := range c.Columns() {
		out = append(out, c[name])
	}
	return out
}

// Columns returns the failed column names in sorted order
func (c ColumnErrors) Columns() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
