// Package errs provides structured, user-friendly errors with machine-parseable codes.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-parseable error identifier.
type ErrorCode string

const (
	// General
	ErrInternal   ErrorCode = "ERR-001"
	ErrConfig     ErrorCode = "ERR-002"
	ErrValidation ErrorCode = "ERR-003"

	// CLI input errors
	ErrInvalidVariant ErrorCode = "ERR-VARIANT-001"
	ErrInvalidCommand ErrorCode = "ERR-CMD-001"

	// Bootstrap errors
	ErrCompileFailed ErrorCode = "ERR-BOOT-001"
	ErrBootstrapIO   ErrorCode = "ERR-BOOT-002"

	// Dispatch errors
	ErrChildFailed ErrorCode = "ERR-DISPATCH-001"
	ErrChildSpawn  ErrorCode = "ERR-DISPATCH-002"

	// Container errors
	ErrImageBuildFailed   ErrorCode = "ERR-CONTAINER-001"
	ErrContainerRunFailed ErrorCode = "ERR-CONTAINER-002"
	ErrContainerEngine    ErrorCode = "ERR-CONTAINER-003"

	// State errors
	ErrStateRead  ErrorCode = "ERR-STATE-001"
	ErrStateWrite ErrorCode = "ERR-STATE-002"
)

// Error is the standard structured error type used across all buildctl packages.
type Error struct {
	Code     ErrorCode // Machine-parseable error code
	Op       string    // Operation chain, e.g., "dispatch.build"
	Resource string    // Resource identifier (variant, binary path, image tag, etc.)
	Status   int       // Exit status of a child process, 0 when not applicable
	Cause    error     // Wrapped upstream error
	Advice   string    // Human-readable remediation hint
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Op, e.Resource, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the formatted user-facing error message with remediation advice.
func (e *Error) UserMessage() string {
	msg := fmt.Sprintf("%v", e.Cause)
	if e.Resource != "" {
		msg += fmt.Sprintf(" (%s)", e.Resource)
	}
	if e.Advice != "" {
		msg += fmt.Sprintf("\n  → %s", e.Advice)
	}
	return msg
}

// New creates a new Error.
func New(code ErrorCode, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Cause: cause}
}

// Newf creates a new Error with a formatted message as the cause.
func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Cause: fmt.Errorf(format, args...)}
}

// WithResource sets the resource identifier on an Error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithStatus records the exit status of the child process that caused the error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithAdvice sets the human-readable remediation hint on an Error.
func (e *Error) WithAdvice(advice string) *Error {
	e.Advice = advice
	return e
}

// Wrap wraps an existing error as an Error at a new operation boundary.
func Wrap(err error, code ErrorCode, op string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Cause: err}
}

// IsCode reports whether err is an Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As extracts the outermost *Error from err, or returns nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// ExitStatus returns the child exit status carried by err.
// It returns 0 for a nil error and 1 when err carries no status.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok && e.Status != 0 {
			return e.Status
		}
	}
	return 1
}
