// Package errors defines the coded errors that services hand to the API layer.
//
// Every Code maps to exactly one HTTP status. Two *Error values match under
// errors.Is when their codes match, so callers test against the Err* values
// rather than comparing messages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable part of an error, surfaced as error.code.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeValidation     Code = "VALIDATION"
	CodeSchemaMismatch Code = "SCHEMA_MISMATCH"
	CodeIntegrity      Code = "INTEGRITY"
	CodeBadRequest     Code = "BAD_REQUEST"
	CodeUnavailable    Code = "UNAVAILABLE"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeInternal       Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeNotFound:       http.StatusNotFound,
	CodeConflict:       http.StatusConflict,
	CodeValidation:     http.StatusBadRequest,
	CodeBadRequest:     http.StatusBadRequest,
	CodeSchemaMismatch: http.StatusUnprocessableEntity,
	CodeIntegrity:      http.StatusUnprocessableEntity,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeRateLimited:    http.StatusTooManyRequests,
}

// HTTPStatus maps c to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a Code, a client-safe message and optional structured details.
// The cause is kept for logs and errors.Is but never serialized.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus is the status of e's code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// GetStatus satisfies huma.StatusError so handlers can return e as is.
func (e *Error) GetStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is. Only the code takes part in matching.
var (
	ErrNotFound       = New(CodeNotFound, "not found")
	ErrConflict       = New(CodeConflict, "conflict")
	ErrValidation     = New(CodeValidation, "validation error")
	ErrSchemaMismatch = New(CodeSchemaMismatch, "schema mismatch")
	ErrIntegrity      = New(CodeIntegrity, "integrity violation")
	ErrBadRequest     = New(CodeBadRequest, "bad request")
	ErrUnavailable    = New(CodeUnavailable, "unavailable")
	ErrInternal       = New(CodeInternal, "internal error")
)

// New returns an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap returns an error with the given code and message that wraps err.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func NotFound(msg string) *Error    { return New(CodeNotFound, msg) }
func Validation(msg string) *Error  { return New(CodeValidation, msg) }
func BadRequest(msg string) *Error  { return New(CodeBadRequest, msg) }
func Unavailable(msg string) *Error { return New(CodeUnavailable, msg) }

func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

func SchemaMismatchf(format string, args ...any) *Error {
	return Newf(CodeSchemaMismatch, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain. Anything else
// is CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldDetails is the details payload of field validation failures.
type FieldDetails struct {
	// First is the first failing field in the order the fields were checked.
	First  string            `json:"first"`
	Fields map[string]string `json:"fields"`
}

// Fields returns a validation error with per-field messages. order lists the
// checked field names; its first element becomes FieldDetails.First.
func Fields(msg string, order []string, fields map[string]string) *Error {
	d := FieldDetails{Fields: fields}
	if len(order) > 0 {
		d.First = order[0]
	}
	return New(CodeValidation, msg).WithDetails(d)
}
