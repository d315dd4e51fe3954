// Package apperr defines the domain error kinds returned by mutations.
//
// A mutation either succeeds or fails with exactly one *Error. Anything else
// coming out of a handler is an unexpected failure for that request only.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidState    Kind = "INVALID_STATE"
)

// Error is a domain failure carrying a client-facing message and, when known,
// the acting user for log correlation.
type Error struct {
	Kind    Kind
	Message string
	UserID  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches a sentinel of the same kind, so errors.Is(err, ErrNotFound)
// holds for every NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.UserID == ""
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
)

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(userID, msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg, UserID: userID}
}

func NotFound(userID, msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, UserID: userID}
}

func InvalidState(userID, msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg, UserID: userID}
}

// As extracts the domain error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return "", false
}
