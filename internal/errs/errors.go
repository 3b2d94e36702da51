// Package errs provides the unified error type used across the registrar.
//
// Every subsystem (database drivers, schema manager, seed loader, session
// layer, archive, …) wraps its native errors into *errs.Error before
// returning them to callers. Callers use the Is* predicates to handle errors
// without importing driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindConstraintViolation, "duplicate email", sqlErr)
//
//	// In a handler, check error kind:
//	if errs.IsNotConnected(err) {
//	    http.Error(w, "no active connection", http.StatusConflict)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing engine-specific codes.
// Both backends (Postgres, MySQL) map their native errors to one of these
// kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no rows, unknown relation, bad row index
	ErrKindConnectionFailed            // cannot reach or authenticate with the database
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // SQL or DDL execution error
	ErrKindConstraintViolation         // unique / check / foreign-key rejection
	ErrKindNotConnected                // operation issued with no active session
	ErrKindInvalidInput                // bad arguments caught before any round-trip
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindConstraintViolation:
		return "constraint_violation"
	case ErrKindNotConnected:
		return "not_connected"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all registrar subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (no rows, unknown relation, row index out of range, …).
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a statement execution failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsConstraintViolation reports whether err was rejected by a unique, check,
// or foreign-key constraint of the storage engine.
func IsConstraintViolation(err error) bool {
	return KindOf(err) == ErrKindConstraintViolation
}

// IsNotConnected reports whether err was caused by calling a data operation
// while the lifecycle controller is in the Disconnected state.
func IsNotConnected(err error) bool {
	return KindOf(err) == ErrKindNotConnected
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from any error in the chain.
// Returns ErrKindUnknown for nil and for errors that carry no *Error.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
