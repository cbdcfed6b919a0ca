package errors

import (
	"fmt"
	"strings"
	"time"
)

// Error types for the ccsearch pipeline
type ErrorType string

const (
	// Usage errors are caught before any input is parsed
	ErrorTypeUsage ErrorType = "usage"

	// Input file errors
	ErrorTypeParse        ErrorType = "parse"
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Semantic problem-instance errors
	ErrorTypeValidation ErrorType = "validation"

	// Search engine errors
	ErrorTypeEngine ErrorType = "engine"
)

// ParseError represents a structural error in the delimited input file
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Line       int
	Expected   int
	Actual     int
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error for a physical input line
func NewParseError(path string, line int, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Line:       line,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewColumnCountError creates a parse error for a line whose field count
// differs from the count fixed by the first data line
func NewColumnCountError(path string, line, expected, actual int) *ParseError {
	e := NewParseError(path, line, fmt.Errorf("column count mismatch: have %d, expected %d", actual, expected))
	e.Expected = expected
	e.Actual = actual
	return e
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("parse error at %s:%d: %v", e.FilePath, e.Line, e.Underlying)
	}
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.HasSuffix(errStr, "permission denied") || strings.HasSuffix(errStr, "access denied")
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a usage error: a flag or parameter-file value that
// cannot be accepted
type ConfigError struct {
	Type       ErrorType
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Type:       ErrorTypeUsage,
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Underlying)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// ValidationError collects every semantic violation found in a problem
// instance so they can be reported in one pass
type ValidationError struct {
	Type      ErrorType
	Problems  []string
	Timestamp time.Time
}

// NewValidationError creates a validation error from the collected messages
func NewValidationError(problems []string) *ValidationError {
	return &ValidationError{
		Type:      ErrorTypeValidation,
		Problems:  problems,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Problems[0]
	}
	return fmt.Sprintf("validation failed with %d problems:\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// EngineError represents a non-success return from the search engine
type EngineError struct {
	Type       ErrorType
	Call       string
	Code       int
	Underlying error
	Timestamp  time.Time
}

// NewEngineError creates a new engine error for the named boundary call
func NewEngineError(call string, code int) *EngineError {
	return &EngineError{
		Type:      ErrorTypeEngine,
		Call:      call,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// WithCause attaches an underlying error
func (e *EngineError) WithCause(err error) *EngineError {
	e.Underlying = err
	return e
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("engine %s failed (code %d): %v", e.Call, e.Code, e.Underlying)
	}
	return fmt.Sprintf("engine %s failed (code %d)", e.Call, e.Code)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected, so callers can
// return the result directly
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors:\n  %s", len(e.Errors), strings.Join(msgs, "\n  "))
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Messages flattens an error into the lines that should be printed on the
// error stream. MultiError and ValidationError expand to one line per entry.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *MultiError:
		var out []string
		for _, inner := range e.Errors {
			out = append(out, Messages(inner)...)
		}
		return out
	case *ValidationError:
		return append([]string(nil), e.Problems...)
	}
	return []string{err.Error()}
}
