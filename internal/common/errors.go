// Package common defines the error kinds shared by the repositories, the
// services and the HTTP layer. Callers match kinds with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Business rule errors.
	ErrValidation     = errors.New("validation error")
	ErrAlreadyExists  = errors.New("already exists")
	ErrAuthentication = errors.New("authentication error")
	ErrInvalidState   = errors.New("invalid state")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrInternal = errors.New("internal error")
)

// Error is a business error carrying the message shown to API clients.
// It unwraps to its Kind, so errors.Is(err, ErrValidation) works.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds an *Error of the given kind.
func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) error {
	return NewError(ErrValidation, message)
}

func NotFound(message string) error {
	return NewError(ErrNotFound, message)
}

// Message returns the client-facing text of err: the message of the first
// *Error in the chain, or err.Error() otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
