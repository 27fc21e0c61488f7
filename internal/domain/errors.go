package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of caller-facing business error codes.
// Anything outside this taxonomy is an infrastructure failure and is
// wrapped/propagated as a plain error instead.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindAccessDenied       ErrorKind = "ACCESS_DENIED"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindQuotaExhausted     ErrorKind = "QUOTA_EXHAUSTED"
	KindAlreadyUsed        ErrorKind = "ALREADY_USED"
	KindNotYetValid        ErrorKind = "NOT_YET_VALID"
	KindExpiredCredential  ErrorKind = "EXPIRED_CREDENTIAL"
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindSchedulingConflict ErrorKind = "SCHEDULING_CONFLICT"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrNotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func ErrAccessDenied(format string, args ...any) *Error {
	return newError(KindAccessDenied, format, args...)
}

func ErrInvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func ErrQuotaExhausted(format string, args ...any) *Error {
	return newError(KindQuotaExhausted, format, args...)
}

func ErrAlreadyUsed(format string, args ...any) *Error {
	return newError(KindAlreadyUsed, format, args...)
}

func ErrNotYetValid(format string, args ...any) *Error {
	return newError(KindNotYetValid, format, args...)
}

func ErrExpiredCredential(format string, args ...any) *Error {
	return newError(KindExpiredCredential, format, args...)
}

func ErrValidation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func ErrSchedulingConflict(format string, args ...any) *Error {
	return newError(KindSchedulingConflict, format, args...)
}

// KindOf extracts the business kind from an error chain. The second
// return is false for infrastructure errors.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given business kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
