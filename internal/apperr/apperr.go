// internal/apperr/apperr.go
//
// Typed errors shared by the mission service and the HTTP layer.
// Every failure reported to a caller carries a stable Kind plus a
// human-readable message; the HTTP layer maps kinds to status codes.

package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of an error.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindAlreadySubmitted Kind = "already_submitted"
	KindConflict         Kind = "conflict"
	KindInvalidPlacement Kind = "invalid_placement"
	KindPowerOverload    Kind = "power_overload"
	KindBudgetExceeded   Kind = "budget_exceeded"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindInternal         Kind = "internal"
)

// Sentinels for errors.Is checks. An *Error matches the sentinel of its kind.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadySubmitted = &Error{Kind: KindAlreadySubmitted}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidPlacement = &Error{Kind: KindInvalidPlacement}
	ErrPowerOverload    = &Error{Kind: KindPowerOverload}
	ErrBudgetExceeded   = &Error{Kind: KindBudgetExceeded}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInternal         = &Error{Kind: KindInternal}
)

// Error is a categorized failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause. Used for storage failures surfaced as internal errors.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation, NotFound, ... are shorthands for New with a fixed kind.
func Validation(format string, args ...any) *Error { return New(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return New(KindNotFound, format, args...) }

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err. Non-categorized errors
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "server error"
}
