// Package errors defines the error taxonomy of the wane compiler.
//
// User-facing failures (malformed markup, names that cannot be resolved,
// definitions that are unreachable from their consumer) are returned as
// values carrying enough location context to point at the template.
// Internal consistency failures are InvariantViolations: they indicate a
// bug in the compiler, are raised with panic and are never returned.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeResolve    ErrorType = "resolve"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes shared across packages.
const (
	CodeRecursiveComponent = "recursive_component"
	CodeUnknownComponent   = "unknown_component"
	CodeDuplicateComponent = "duplicate_component"
	CodeInvalidConfig      = "invalid_config"
	CodeInvalidManifest    = "invalid_manifest"
	CodeInvalidStyle       = "invalid_style"
	CodeScanFailed         = "scan_failed"
	CodeMissingMetadata    = "missing_metadata"
)

// WaneError is a structured error type with context.
type WaneError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	FilePath  string
	Line      int
	Column    int
}

// Error implements the error interface.
func (e *WaneError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *WaneError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *WaneError) Is(target error) bool {
	var t *WaneError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *WaneError) WithContext(key string, value interface{}) *WaneError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *WaneError) WithLocation(filePath string, line, column int) *WaneError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *WaneError) WithComponent(component string) *WaneError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *WaneError {
	return &WaneError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *WaneError {
	return &WaneError{
		Type:    ErrorTypeBuild,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *WaneError {
	return &WaneError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *WaneError {
	return &WaneError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *WaneError {
	return &WaneError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	var te *WaneError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeBuild
	}

	return false
}

// HasErrorCode reports whether any WaneError in the chain carries code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var te *WaneError
		if !errors.As(err, &te) {
			return false
		}
		if te.Code == code {
			return true
		}
		err = te.Cause
	}

	return false
}

// ErrRecursiveComponent reports a component that instantiates itself.
func ErrRecursiveComponent(chain []string) *WaneError {
	return NewBuildError(CodeRecursiveComponent,
		"component instantiates itself: "+strings.Join(chain, " -> "), nil).
		WithComponent(chain[0])
}

// ErrUnknownComponent reports a component tag without definition.
func ErrUnknownComponent(name string) *WaneError {
	return NewBuildError(CodeUnknownComponent, fmt.Sprintf("component %q is not registered", name), nil).
		WithComponent(name)
}
