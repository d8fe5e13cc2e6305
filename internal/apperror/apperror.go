// Package apperror maps every failure surfaced by roomhub's core onto the
// error-kind sum type described in spec §7. It wraps
// github.com/cockroachdb/errors rather than the standard library's errors
// package so every roomhub error carries a stack trace and is safe to wrap
// with operator-facing hints, the same way teranos-QNTX's errors package
// re-exports cockroachdb/errors for the whole service.
package apperror

import (
	crdb "github.com/cockroachdb/errors"
)

// Kind classifies a failure the way spec §7's table does. Exactly one Kind
// applies to any given error.
type Kind int

const (
	// KindInvalidInput covers malformed YAML, unbalanced braces, non-ASCII
	// player names, duplicate names, reserved names, and unsupported games
	// rejected because allow_unsupported is false.
	KindInvalidInput Kind = iota
	// KindPreconditionFailed covers a closed room receiving a re-open-only
	// action, a generation pre-flight checklist violation, or an upload to
	// a closed room.
	KindPreconditionFailed
	// KindNotFound covers an unknown room, YAML, apworld, or version.
	KindNotFound
	// KindTimeout covers a synchronous validation wait that exceeded its
	// budget; the caller cancels the job and surfaces "try later".
	KindTimeout
	// KindWorkerError covers a job that resolved Failure, or a generation
	// record that moved to Failed.
	KindWorkerError
	// KindInternalError covers store outages, a job resolving
	// InternalError, or unparseable stored state. Callers must retry at
	// the next opportunity and must never silently drop it.
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindWorkerError:
		return "worker_error"
	case KindInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error is a roomhub error carrying a Kind alongside the wrapped cause.
type Error struct {
	kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// ErrorKind returns the classification of err, or KindInternalError if err does
// not carry one (an unclassified failure is treated as internal so it is
// never silently dropped).
func ErrorKind(err error) Kind {
	var ae *Error
	if crdb.As(err, &ae) {
		return ae.kind
	}
	return KindInternalError
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, cause: crdb.WithStack(crdb.Newf(format, args...))}
}

func wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, cause: crdb.Wrap(err, msg)}
}

// InvalidInput constructs a KindInvalidInput error.
func InvalidInput(format string, args ...interface{}) error { return newf(KindInvalidInput, format, args...) }

// WrapInvalidInput wraps err as KindInvalidInput.
func WrapInvalidInput(err error, msg string) error { return wrap(KindInvalidInput, err, msg) }

// PreconditionFailed constructs a KindPreconditionFailed error.
func PreconditionFailed(format string, args ...interface{}) error {
	return newf(KindPreconditionFailed, format, args...)
}

// NotFound constructs a KindNotFound error.
func NotFound(format string, args ...interface{}) error { return newf(KindNotFound, format, args...) }

// Timeout constructs a KindTimeout error.
func Timeout(format string, args ...interface{}) error { return newf(KindTimeout, format, args...) }

// WorkerError constructs a KindWorkerError error, typically carrying the
// message a resolved job reported.
func WorkerError(format string, args ...interface{}) error { return newf(KindWorkerError, format, args...) }

// Internal constructs a KindInternalError error.
func Internal(format string, args ...interface{}) error { return newf(KindInternalError, format, args...) }

// WrapInternal wraps err as KindInternalError, for store outages and
// unparseable stored state.
func WrapInternal(err error, msg string) error { return wrap(KindInternalError, err, msg) }

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return ErrorKind(err) == kind
}
