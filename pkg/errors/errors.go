// Package errors provides a structured, coded error type used throughout
// icloud-dedupe so callers can branch on failure category instead of
// matching error strings.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a category of failure. Stable across releases so tests
// and callers can match on it.
type Code string

const (
	ErrUnknown      Code = "UNKNOWN"
	ErrInternal     Code = "INTERNAL"
	ErrInvalidInput Code = "INVALID_INPUT"
	ErrNotFound     Code = "NOT_FOUND"

	// ErrPatternInvalid marks a filename grammar failure. Kept for future
	// grammar extensions; the current pattern engine never returns it.
	ErrPatternInvalid Code = "PATTERN_INVALID"

	// ErrIO covers open/read/write/rename failures against the filesystem.
	ErrIO Code = "IO"
	// ErrPermission is a denied-access IO failure, separated out for UX.
	ErrPermission Code = "PERMISSION"
	// ErrVanished marks a TOCTOU failure: a path that existed earlier in
	// the operation no longer exists.
	ErrVanished Code = "VANISHED"
	// ErrContentChanged marks a digest mismatch found at the quarantine
	// pre-flight check.
	ErrContentChanged Code = "CONTENT_CHANGED"
	// ErrManifestCorrupt marks a manifest that failed to parse, is
	// missing required fields, or has a schema version too new to read.
	ErrManifestCorrupt Code = "MANIFEST_CORRUPT"
	// ErrCancelled marks a user-initiated cancellation.
	ErrCancelled Code = "CANCELLED"
	// ErrInvariantViolation marks a fatal internal consistency failure,
	// e.g. two digests claimed for one keep path.
	ErrInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error is a coded, wrappable error carrying structured detail fields.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is match any two *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Details: make(map[string]any)}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: make(map[string]any)}
}

func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Details: make(map[string]any), Wrapped: err}
}

func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: make(map[string]any), Wrapped: err}
}

// WithDetail attaches a structured detail and returns the receiver for
// chaining at the construction site.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsCode reports whether err is, or wraps, an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns err's Code, or ErrUnknown if err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}
