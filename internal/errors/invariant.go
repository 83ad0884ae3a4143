package errors

import "fmt"

// InvariantViolation is the panic value raised when the compiler's own
// bookkeeping is inconsistent.
type InvariantViolation struct {
	Message string
}

// Error implements the error interface.
func (v *InvariantViolation) Error() string {
	return "invariant violation: " + v.Message
}

// Violation panics with an InvariantViolation.
func Violation(format string, args ...interface{}) {
	panic(&InvariantViolation{Message: fmt.Sprintf(format, args...)})
}

// Invariant panics with an InvariantViolation unless cond holds.
func Invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		Violation(format, args...)
	}
}
