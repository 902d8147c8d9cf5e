package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed backend call. Every error leaving this
// package carries exactly one Kind; callers branch on it instead of
// string-matching messages.
type Kind string

const (
	// KindNetwork covers timeouts and connection failures. Retryable.
	KindNetwork Kind = "network"

	// KindAuth covers missing or rejected identity (401/403). Not
	// retryable without re-authentication.
	KindAuth Kind = "auth"

	// KindServer covers any other non-2xx response. Retryable at the
	// caller's discretion.
	KindServer Kind = "server"

	// KindDecode covers malformed response payloads. Not retryable;
	// indicates a contract mismatch with the backend.
	KindDecode Kind = "decode"
)

// Common resource client errors.
var (
	// ErrMissingUserID is returned when an authenticated endpoint is
	// called without a current user id.
	ErrMissingUserID = errors.New("missing current user id")

	// ErrUnauthorized is returned when the backend rejects the
	// supplied identity.
	ErrUnauthorized = errors.New("identity rejected by backend")
)

// Error is the single error shape produced by the resource client.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Op is the endpoint method that failed (e.g. "ListInvoices").
	Op string

	// Status is the HTTP status code, if a response was received.
	Status int

	// Message is a human-readable description safe to surface.
	Message string

	// Retryable reports whether retrying the same call may succeed.
	Retryable bool

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s failed (%s, status %d): %s", e.Op, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s failed (%s): %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a resource client error that may
// succeed on retry. Unknown errors are treated as not retryable.
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// KindOf extracts the classification from err, or "" if err did not
// originate in this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// classifyTransport maps a transport-level failure (no HTTP response
// at all) onto the taxonomy. Context timeouts and net errors are
// network failures; an explicit caller cancellation is passed through
// untouched so teardown paths can recognize it.
func classifyTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:      KindNetwork,
			Op:        op,
			Message:   "request timed out",
			Retryable: true,
			Err:       err,
		}
	}

	return &Error{
		Kind:      KindNetwork,
		Op:        op,
		Message:   "connection failed",
		Retryable: true,
		Err:       err,
	}
}

// classifyStatus maps a non-2xx response onto the taxonomy.
func classifyStatus(op string, status int, body string) error {
	if status == 401 || status == 403 {
		return &Error{
			Kind:      KindAuth,
			Op:        op,
			Status:    status,
			Message:   "authentication failed",
			Retryable: false,
			Err:       ErrUnauthorized,
		}
	}
	msg := body
	if msg == "" {
		msg = "backend returned an error"
	}
	return &Error{
		Kind:      KindServer,
		Op:        op,
		Status:    status,
		Message:   msg,
		Retryable: true,
	}
}
