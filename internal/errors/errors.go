// Package errors defines the typed application errors used to tell apart the
// ways a search can fail: configuration, transport, malformed API responses and
// storage.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown   = "UNKNOWN"
	CodeDatabase  = "DATABASE"
	CodeConfig    = "CONFIG"
	CodeTransport = "TRANSPORT"
	CodeMalformed = "MALFORMED_RESPONSE"
	CodeImage     = "IMAGE"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't carry one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, err: cause}
}

// NewDatabaseError wraps a storage failure.
func NewDatabaseError(message string, cause error) error {
	return newError(CodeDatabase, message, cause)
}

// NewConfigError wraps an invalid or unreadable configuration.
func NewConfigError(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}

// NewTransportError wraps a connection failure, timeout or non-200 response
// from the search API.
func NewTransportError(message string, cause error) error {
	return newError(CodeTransport, message, cause)
}

// NewMalformedResponseError wraps a response body that is not the expected JSON shape.
func NewMalformedResponseError(message string, cause error) error {
	return newError(CodeMalformed, message, cause)
}

// NewImageError wraps a failure to turn an image segment into a fetchable URL.
func NewImageError(message string, cause error) error {
	return newError(CodeImage, message, cause)
}
