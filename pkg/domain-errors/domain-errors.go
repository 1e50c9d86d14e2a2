package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a transport-agnostic failure category. Handlers map it to a
// status; services and stores only ever pick one.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"

	// CodeConfiguration marks a broken profile, action or credential definition.
	CodeConfiguration Code = "configuration_error"
	// CodeSecurityViolation marks step skipping in a multi-step flow. Callers fail closed.
	CodeSecurityViolation Code = "security_violation"
	CodeTooManyAttempts   Code = "too_many_attempts"
	// CodeExpired marks a session or context used past its TTL.
	CodeExpired Code = "expired"
)

// Error carries a Code, a client-safe Message and the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, &Error{Code: c})
// works as a code check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches msg to err. An existing domain code in err wins over code,
// so a store's not_found survives being wrapped as internal further up.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		code = existing.Code
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func Wrapf(err error, code Code, format string, args ...any) error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// CodeOf returns the outermost domain code in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
