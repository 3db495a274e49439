// Package svcerr defines the closed error taxonomy for external service
// boundaries. Retryability is a static property of the error kind and is
// never inferred from message text.
package svcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a service-boundary failure.
type Kind string

const (
	// KindTimeout covers deadline exceeded and request timeouts.
	KindTimeout Kind = "TIMEOUT"
	// KindConnReset covers connections reset mid-flight.
	KindConnReset Kind = "CONNECTION_RESET"
	// KindConnRefused covers unreachable upstream services.
	KindConnRefused Kind = "CONNECTION_REFUSED"
	// KindRateLimited covers 429-style throttling responses.
	KindRateLimited Kind = "RATE_LIMITED"
	// KindMalformed covers syntactically invalid upstream payloads.
	KindMalformed Kind = "MALFORMED_RESPONSE"
	// KindPermanent covers auth and configuration failures that will
	// recur for every job until an operator intervenes.
	KindPermanent Kind = "PERMANENT"
	// KindInternal covers everything that is not a service boundary
	// failure (programming errors, unexpected store failures).
	KindInternal Kind = "INTERNAL"
)

// Retryable reports whether re-running the same job can succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindConnReset, KindConnRefused, KindRateLimited:
		return true
	default:
		return false
	}
}

// Error is a structured service error carrying its kind and cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error wrapping a cause.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Timeout builds a timeout error for op.
func Timeout(op string, err error) *Error {
	return Wrap(KindTimeout, op, "request timed out", err)
}

// ConnReset builds a connection-reset error for op.
func ConnReset(op string, err error) *Error {
	return Wrap(KindConnReset, op, "connection reset", err)
}

// ConnRefused builds a connection-refused error for op.
func ConnRefused(op string, err error) *Error {
	return Wrap(KindConnRefused, op, "connection refused", err)
}

// RateLimited builds a rate-limit error for op.
func RateLimited(op string, err error) *Error {
	return Wrap(KindRateLimited, op, "rate limited", err)
}

// Malformed builds a malformed-response error for op.
func Malformed(op string, err error) *Error {
	return Wrap(KindMalformed, op, "malformed response", err)
}

// Permanent builds an auth/config error for op.
func Permanent(op string, err error) *Error {
	return Wrap(KindPermanent, op, "permanent service failure", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err carries a retryable kind.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// IsPermanent reports whether err carries the permanent kind.
func IsPermanent(err error) bool {
	return KindOf(err) == KindPermanent
}
