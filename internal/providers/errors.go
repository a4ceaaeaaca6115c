// Package providers holds the shared contract between the engine and the
// external order, ads, and courier APIs: a normalized error taxonomy and the
// retry policy applied to transient failures.
package providers

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a provider failure. Every error crossing a client boundary
// carries exactly one kind.
type Kind string

const (
	KindAuthExpired  Kind = "auth_expired"
	KindRateLimited  Kind = "rate_limited"
	KindBadResponse  Kind = "upstream_bad_response"
	KindNetwork      Kind = "network"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
)

// Error is the normalized failure returned by every provider client.
type Error struct {
	Provider   string
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a provider error with an optional wrapped cause.
func NewError(provider string, kind Kind, message string, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the failure kind from err, or "" when err is not a
// provider error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is a provider error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// RetryAfterOf returns the suggested retry delay carried by a rate-limit
// error, or zero.
func RetryAfterOf(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
