// Package common defines sentinel errors and constants shared by the server,
// its transports and the CLI client. Callers should match errors with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Request outcome taxonomy; transports map these onto wire codes.
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInternal         = errors.New("internal error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// StatusError pairs a taxonomy sentinel with the message returned to the
// caller. errors.Is matches the sentinel.
type StatusError struct {
	Kind    error
	Message string
}

func (e *StatusError) Error() string { return e.Message }

func (e *StatusError) Unwrap() error { return e.Kind }

// Status returns a StatusError of kind with msg.
func Status(kind error, msg string) error {
	return &StatusError{Kind: kind, Message: msg}
}

// Statusf is Status with formatting.
func Statusf(kind error, format string, args ...any) error {
	return &StatusError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
