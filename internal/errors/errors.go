package errors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Diagnostic is a single reported problem with a component.
type Diagnostic struct {
	Component string
	File      string
	Line      int
	Column    int
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	file := d.File
	if file == "" {
		file = d.Component
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", file, d.Line, d.Column, d.Severity, d.Message)
}

// DiagnosticFromError converts a compiler error into a Diagnostic, keeping
// whatever location the error carries.
func DiagnosticFromError(component, file string, err error) Diagnostic {
	d := Diagnostic{
		Component: component,
		File:      file,
		Message:   err.Error(),
		Severity:  ErrorSeverityError,
	}

	var pe *ParseError
	var ue *UnresolvedReferenceError
	var we *WaneError
	switch {
	case errors.As(err, &pe):
		d.Line, d.Column, d.Message = pe.Start.Line, pe.Start.Column, pe.Message
	case errors.As(err, &ue):
		d.Line, d.Column = ue.Start.Line, ue.Start.Column
	case errors.As(err, &we):
		d.Line, d.Column = we.Line, we.Column
		if we.FilePath != "" {
			d.File = we.FilePath
		}
	}
	return d
}

// ErrorCollector collects diagnostics from concurrent checks
type ErrorCollector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add adds a diagnostic to the collector
func (ec *ErrorCollector) Add(d Diagnostic) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	d.Timestamp = time.Now()
	ec.diagnostics = append(ec.diagnostics, d)
}

// AddError records err against component.
func (ec *ErrorCollector) AddError(component, file string, err error) {
	if err == nil {
		return
	}
	ec.Add(DiagnosticFromError(component, file, err))
}

// GetDiagnostics returns a copy of all diagnostics ordered by component,
// then position.
func (ec *ErrorCollector) GetDiagnostics() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return result
}

// HasErrors returns true if any diagnostic is an error or worse
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	for _, d := range ec.diagnostics {
		if d.Severity >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// Clear clears all diagnostics
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = ec.diagnostics[:0]
}

// GetDiagnosticsByComponent returns diagnostics for a specific component
func (ec *ErrorCollector) GetDiagnosticsByComponent(component string) []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var out []Diagnostic
	for _, d := range ec.diagnostics {
		if d.Component == component {
			out = append(out, d)
		}
	}
	return out
}
