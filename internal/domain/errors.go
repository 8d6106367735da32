package domain

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures. Collectors, the store and the odds engine
// return kinds instead of throwing across component boundaries; the
// orchestrator decides retry versus escalate from the kind alone.
type Kind string

const (
	// KindTransient covers network errors, timeouts, provider 5xx and rate
	// limits. Recovered locally via retry.
	KindTransient Kind = "unavailable_transient"
	// KindPermanent covers unknown teams, provider schema changes and other
	// non-retryable provider refusals. Surfaced in the refresh report; the
	// last good raw value is retained.
	KindPermanent Kind = "unavailable_permanent"
	// KindInvalid marks provider values outside the admissible range.
	// Treated like KindPermanent after rejection.
	KindInvalid Kind = "invalid"
	// KindStorage marks database failures.
	KindStorage Kind = "storage_failure"
	// KindConfiguration marks invalid configuration. Fatal at startup.
	KindConfiguration Kind = "configuration_error"
	// KindInternal marks violated logic invariants.
	KindInternal Kind = "internal"
)

// Retryable reports whether the orchestrator should retry this kind.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindStorage
}

// Error attaches a taxonomy kind to a failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error without an underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Unclassified errors
// report KindInternal so that nothing fails silently.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether the error chain carries a retryable kind.
func IsTransient(err error) bool {
	return KindOf(err).Retryable()
}
