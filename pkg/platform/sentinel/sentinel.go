// Package sentinel holds the errors stores return for facts about stored
// state. Services turn them into domain errors, usually through Translate.
// Bad input is not a sentinel concern; use pkg/domain-errors for that.
package sentinel

import (
	"errors"

	dErrors "idmcore/pkg/domain-errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrExpired  = errors.New("expired")
	// ErrStaleStep means a compare-and-advance found another step than the
	// caller expected.
	ErrStaleStep = errors.New("stale step")
	// ErrInvalidState means the record exists but cannot take the operation,
	// e.g. attributes for a group the entity is not in.
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

var translations = []struct {
	sentinel error
	code     dErrors.Code
	suffix   string
}{
	{ErrNotFound, dErrors.CodeNotFound, " not found"},
	{ErrConflict, dErrors.CodeConflict, " already exists"},
	{ErrExpired, dErrors.CodeExpired, " expired"},
	{ErrStaleStep, dErrors.CodeConflict, " changed concurrently"},
	{ErrInvalidState, dErrors.CodeConflict, " is in an unexpected state"},
	{ErrUnavailable, dErrors.CodeTimeout, " is temporarily unavailable"},
}

// Translate maps a store error about subject to a domain error, e.g.
// ErrNotFound about "enquiry response" becomes CodeNotFound "enquiry
// response not found". Errors that wrap no sentinel become CodeInternal.
func Translate(err error, subject string) error {
	if err == nil {
		return nil
	}
	for _, t := range translations {
		if errors.Is(err, t.sentinel) {
			return dErrors.Wrap(err, t.code, subject+t.suffix)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+subject)
}
