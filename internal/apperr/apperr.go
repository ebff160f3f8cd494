// Package apperr defines the error kinds surfaced by core operations and
// their mapping to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthRequired
	KindAuth
	KindForbidden
	KindNotFound
	KindInvalidContent
	KindSelfDeletion
	KindTooLarge
)

func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidContent, KindSelfDeletion:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthRequired, KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthRequired:
		return "auth_required"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidContent:
		return "invalid_content"
	case KindSelfDeletion:
		return "self_deletion"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to clients; Err is
// the underlying cause and is only ever logged.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) error { return New(KindValidation, message) }

func Conflict(message string) error { return New(KindConflict, message) }

func NotFound(message string) error { return New(KindNotFound, message) }

func Forbidden(message string) error { return New(KindForbidden, message) }

func InvalidContent(message string) error { return New(KindInvalidContent, message) }

func TooLarge(message string) error { return New(KindTooLarge, message) }

var (
	ErrAuthRequired = New(KindAuthRequired, "Authentication required")
	ErrInvalidLogin = New(KindAuth, "Invalid username or password")
	ErrAdminOnly    = New(KindForbidden, "Admin access required")
	ErrSelfDeletion = New(KindSelfDeletion, "Cannot delete yourself")
)

// Internal wraps an unexpected failure. The message is what clients see.
func Internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message safe to send to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
