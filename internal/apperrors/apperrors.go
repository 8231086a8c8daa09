// Package apperrors defines the error taxonomy shared by services,
// repositories and the HTTP layer. Every failure crossing a service
// boundary is tagged with a Kind; handlers map kinds to HTTP statuses
// without inspecting underlying storage or transport errors.
package apperrors

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindBadRequest
	KindAuth
	KindUnavailable
	KindGateway
)

// Error is a tagged error. Message is safe to return to clients;
// Err holds the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a client-safe message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error. Already-classified errors pass
// through unchanged so kinds are never overwritten by outer layers.
func Wrap(kind Kind, message string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) error     { return New(KindNotFound, message) }
func Conflict(message string) error     { return New(KindConflict, message) }
func Validation(message string) error   { return New(KindValidation, message) }
func BadRequest(message string) error   { return New(KindBadRequest, message) }
func Unauthorized(message string) error { return New(KindAuth, message) }
func Unavailable(message string) error  { return New(KindUnavailable, message) }
func Gateway(message string) error      { return New(KindGateway, message) }
func Internal(message string) error     { return New(KindInternal, message) }

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCode maps an error to the HTTP status the facade should answer with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindValidation, KindBadRequest:
		return fiber.StatusBadRequest
	case KindAuth:
		return fiber.StatusUnauthorized
	case KindUnavailable:
		return fiber.StatusServiceUnavailable
	case KindGateway:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
