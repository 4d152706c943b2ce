package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can pattern-match on the outcome
// instead of parsing messages.
type ErrorKind string

const (
	// KindInvalid marks malformed or missing request data. Never retried.
	KindInvalid ErrorKind = "invalid_input"

	// KindNotFound marks a missing user, country, or record. Never retried.
	KindNotFound ErrorKind = "not_found"

	// KindUnavailable marks a failed, timed out, or unparseable external
	// call. Callers must not persist partial results when they see it.
	KindUnavailable ErrorKind = "data_unavailable"

	// KindConflict marks a uniqueness violation on create.
	KindConflict ErrorKind = "conflict"

	// KindPartial marks a bulk operation in which some items failed. The
	// message carries every individual failure.
	KindPartial ErrorKind = "partial_failure"
)

// Error is the domain error type. Kind drives control flow; Message is for
// humans; Cause preserves the underlying error for wrapping.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Invalid builds a KindInvalid error.
func Invalid(message string) *Error {
	return &Error{Kind: KindInvalid, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Unavailable builds a KindUnavailable error wrapping its cause.
func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Cause: cause}
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Partial builds a KindPartial error.
func Partial(message string) *Error {
	return &Error{Kind: KindPartial, Message: message}
}

// KindOf extracts the kind from err, or empty string for non-domain errors.
func KindOf(err error) ErrorKind {
	var e *Error

	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
