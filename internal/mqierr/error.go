// Package mqierr defines the closed set of error kinds the MQI client can
// surface (spec.md §7) as a single wrapped error type, following the
// teacher's fmt.Errorf("...: %w", err) wrapping convention rather than a
// third-party errors package.
package mqierr

import (
	"errors"
	"fmt"

	"github.com/oriys/mqi/internal/term"
)

// Kind enumerates the closed set of error kinds from spec.md §7.
type Kind string

const (
	LaunchFailed         Kind = "launch_failed"
	AuthenticationFailed Kind = "authentication_failed"
	TransportError       Kind = "transport_error"
	MalformedFrame       Kind = "malformed_frame"
	ProtocolViolation    Kind = "protocol_violation"
	InvalidState         Kind = "invalid_state"
	TimeoutExceeded      Kind = "timeout_exceeded"
	QueryException       Kind = "query_exception"
	Cancelled            Kind = "cancelled"
	NoQuery              Kind = "no_query"
	NoMoreResults        Kind = "no_more_results"
	SessionUnavailable   Kind = "session_unavailable"
)

// Error is the MQI client's error type. Term is populated for errors built
// by WrapTerm from an engine exception reply, carrying its payload; only
// QueryException renders it in Error().
type Error struct {
	Kind Kind
	Term term.Term
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mqi: %s: %v", e.Kind, e.Err)
	}
	if e.Kind == QueryException {
		return fmt.Sprintf("mqi: %s: %s", e.Kind, e.Term.String())
	}
	return fmt.Sprintf("mqi: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// WrapTerm constructs an Error of the given kind carrying the engine's
// exception term.
func WrapTerm(kind Kind, t term.Term) *Error {
	return &Error{Kind: kind, Term: t}
}

// Is reports whether err is an *Error of the given kind, looking through
// wrapped errors via errors.As.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
