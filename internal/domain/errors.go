package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Per-call kinds raised while talking to GitHub.
	KindTransport       Kind = "TRANSPORT_ERROR"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindNotFound        Kind = "NOT_FOUND"
	KindPaginationLimit Kind = "PAGINATION_LIMIT"

	// Request-level kinds surfaced to callers.
	KindRepositoryNotFound   Kind = "REPOSITORY_NOT_FOUND"
	KindUpstreamUnavailable  Kind = "UPSTREAM_UNAVAILABLE"
	KindInvalidConfiguration Kind = "INVALID_CONFIGURATION"
	KindInvalidInput         Kind = "INVALID_INPUT"
)

// Error is a kinded error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set for KindRateLimited when GitHub told us how long to wait.
	RetryAfter time.Duration
	Cause      error
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

// NewError creates an Error with the given kind and formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind wrapping cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the outermost *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is worth retrying against the same endpoint.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindRateLimited:
		return true
	}
	return false
}
