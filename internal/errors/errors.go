// Package errors defines the typed application errors used across the console.
// Every error carries a code so callers can branch on the failure class and a
// display message that is shown to the operator verbatim.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown     = "UNKNOWN"
	CodeValidation  = "VALIDATION"
	CodeTransport   = "TRANSPORT"
	CodeApplication = "APPLICATION"
	CodeDecode      = "DECODE"
	CodeBusy        = "BUSY"
	CodeConfig      = "CONFIG"
	CodeDatabase    = "DATABASE"
)

// ErrBusy is returned when an operation is triggered while the concurrency
// policy forbids it.
var ErrBusy = &BusyError{}

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

// Message returns the operator-facing line for err. Typed errors render
// their own message; anything else falls back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}

	var displayer interface{ Display() string }
	if errors.As(err, &displayer) {
		return displayer.Display()
	}

	return err.Error()
}

// Is, As and New re-export the standard helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

// ValidationError is a local check that failed before any request was sent.
type ValidationError struct {
	base Error
}

func (e *ValidationError) Error() string {
	return e.base.Error()
}

func (e *ValidationError) Code() string {
	return e.base.Code()
}

func (e *ValidationError) Unwrap() error {
	return e.base.Unwrap()
}

// Display returns the fixed validation message without its cause.
func (e *ValidationError) Display() string {
	return e.base.message
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{
		base: Error{
			code:    CodeValidation,
			message: message,
			err:     cause,
		},
	}
}

// TransportError means the request never produced a usable response:
// the connection failed, the context expired or the body was not JSON.
type TransportError struct {
	base Error
}

func (e *TransportError) Error() string {
	return e.base.Error()
}

func (e *TransportError) Code() string {
	return e.base.Code()
}

func (e *TransportError) Unwrap() error {
	return e.base.Unwrap()
}

// Display returns the underlying failure's message.
func (e *TransportError) Display() string {
	if e.base.err != nil {
		return e.base.err.Error()
	}
	return e.base.message
}

func NewTransportError(message string, cause error) error {
	return &TransportError{
		base: Error{
			code:    CodeTransport,
			message: message,
			err:     cause,
		},
	}
}

// BackendError is a non-2xx answer from the backend. Description is
// detail.description when present, otherwise the compact JSON body.
type BackendError struct {
	base        Error
	Status      int
	Description string
	Body        []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Description)
}

func (e *BackendError) Code() string {
	return e.base.Code()
}

func (e *BackendError) Unwrap() error {
	return e.base.Unwrap()
}

// Display returns the description exactly as extracted from the response.
func (e *BackendError) Display() string {
	return e.Description
}

func NewBackendError(status int, description string, body []byte) error {
	return &BackendError{
		base: Error{
			code:    CodeApplication,
			message: description,
		},
		Status:      status,
		Description: description,
		Body:        body,
	}
}

// DecodeError means a 2xx payload did not match the expected shape.
type DecodeError struct {
	base Error
}

func (e *DecodeError) Error() string {
	return e.base.Error()
}

func (e *DecodeError) Code() string {
	return e.base.Code()
}

func (e *DecodeError) Unwrap() error {
	return e.base.Unwrap()
}

func NewDecodeError(message string, cause error) error {
	return &DecodeError{
		base: Error{
			code:    CodeDecode,
			message: message,
			err:     cause,
		},
	}
}

type BusyError struct{}

func (e *BusyError) Error() string {
	return "operation already in progress"
}

func (e *BusyError) Code() string {
	return CodeBusy
}

func (e *BusyError) Unwrap() error {
	return nil
}

type ConfigError struct {
	base Error
}

func (e *ConfigError) Error() string {
	return e.base.Error()
}

func (e *ConfigError) Code() string {
	return e.base.Code()
}

func (e *ConfigError) Unwrap() error {
	return e.base.Unwrap()
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{
		base: Error{
			code:    CodeConfig,
			message: message,
			err:     cause,
		},
	}
}

type DatabaseError struct {
	base Error
}

func (e *DatabaseError) Error() string {
	return e.base.Error()
}

func (e *DatabaseError) Code() string {
	return e.base.Code()
}

func (e *DatabaseError) Unwrap() error {
	return e.base.Unwrap()
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{
		base: Error{
			code:    CodeDatabase,
			message: message,
			err:     cause,
		},
	}
}
