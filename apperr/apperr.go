// Package apperr is the error taxonomy shared by the lifecycle engine and the
// HTTP boundary. Every kind maps to exactly one HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "validation"
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidState     Kind = "invalid_state"
	KindInvalidOperation Kind = "invalid_operation"
	KindRateLimited      Kind = "rate_limited"
	KindDependency       Kind = "dependency"
	KindInternal         Kind = "internal"
)

// Error carries a user-facing message; Err is the cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so callers can write errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error       { return New(KindValidation, msg) }
func Unauthenticated(msg string) *Error  { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error        { return New(KindForbidden, msg) }
func NotFound(msg string) *Error         { return New(KindNotFound, msg) }
func Conflict(msg string) *Error         { return New(KindConflict, msg) }
func InvalidState(msg string) *Error     { return New(KindInvalidState, msg) }
func InvalidOperation(msg string) *Error { return New(KindInvalidOperation, msg) }
func RateLimited(msg string) *Error      { return New(KindRateLimited, msg) }

func Dependency(msg string, err error) *Error { return Wrap(KindDependency, msg, err) }
func Internal(err error) *Error               { return Wrap(KindInternal, "Internal server error", err) }

// KindOf returns the kind of err, or KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var statusByKind = map[Kind]int{
	KindValidation:       http.StatusBadRequest,
	KindUnauthenticated:  http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindInvalidState:     http.StatusBadRequest,
	KindInvalidOperation: http.StatusBadRequest,
	KindRateLimited:      http.StatusTooManyRequests,
	KindDependency:       http.StatusServiceUnavailable,
	KindInternal:         http.StatusInternalServerError,
}

func HTTPStatus(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message returns the text safe to show to the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal server error"
}
