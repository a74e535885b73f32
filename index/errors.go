package index

import (
	"errors"
	"fmt"
)

// Code is the error taxonomy returned by the indexing core (spec.md §7).
type Code int

const (
	// Success is never actually carried by an *Error value; it exists so
	// Code has a meaningful zero value distinct from all failure codes.
	Success Code = iota
	// NoSuchObject marks a logical absence — routine, not a failure the
	// caller needs to log loudly.
	NoSuchObject
	// ConstraintViolation marks a uniqueness or DN-duplicate violation.
	ConstraintViolation
	// EntryAlreadyExists is the public-boundary remapping of
	// ConstraintViolation on the DN-index path (spec.md §7).
	EntryAlreadyExists
	// UnwillingToPerform marks a refusal on policy grounds, e.g. reindex
	// of a read-only database.
	UnwillingToPerform
	// OperationsError is the catch-all for corruption, alignment, version
	// mismatch, and anything with no finer-grained code.
	OperationsError
)

// String renders the code's name for logging and error messages.
func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case NoSuchObject:
		return "NO_SUCH_OBJECT"
	case ConstraintViolation:
		return "CONSTRAINT_VIOLATION"
	case EntryAlreadyExists:
		return "ENTRY_ALREADY_EXISTS"
	case UnwillingToPerform:
		return "UNWILLING_TO_PERFORM"
	case OperationsError:
		return "OPERATIONS_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the core's error type, modeled on the teacher's
// *IDResolutionError (nanostore/nanostore/ids/resolver.go): a small struct
// carrying a taxonomy code, a message, and an optional wrapped cause, so
// errors.As/errors.Is works against it the way CommandPreprocessor expects.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("index: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("index: %s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newErr(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotFound constructs a NoSuchObject error.
func NotFound(format string, args ...any) *Error {
	return newErr(NoSuchObject, format, args...)
}

// ConstraintViolationf constructs a ConstraintViolation error.
func ConstraintViolationf(format string, args ...any) *Error {
	return newErr(ConstraintViolation, format, args...)
}

// AlreadyExists constructs an EntryAlreadyExists error.
func AlreadyExists(format string, args ...any) *Error {
	return newErr(EntryAlreadyExists, format, args...)
}

// UnwillingToPerformf constructs an UnwillingToPerform error.
func UnwillingToPerformf(format string, args ...any) *Error {
	return newErr(UnwillingToPerform, format, args...)
}

// OperationsErrorf constructs an OperationsError error.
func OperationsErrorf(format string, args ...any) *Error {
	return newErr(OperationsError, format, args...)
}

// OperationsErrorWrap wraps cause as an OperationsError.
func OperationsErrorWrap(cause error, format string, args ...any) *Error {
	return wrapErr(OperationsError, cause, format, args...)
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error,
// defaulting to OperationsError for anything else — the catch-all per
// spec.md §7.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return OperationsError
}
