package store

import (
	"strings"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

// Error is a persistence failure. Code is the domain code the service layer
// reports it under.
type Error struct {
	Code    domainerrors.Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel e was derived from: same code, and a message that
// equals the sentinel's or extends it via WithMessage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code != e.Code {
		return false
	}
	return e.Message == t.Message || strings.HasPrefix(e.Message, t.Message+": ")
}

// WithMessage returns a copy whose message is "<sentinel message>: msg".
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = e.Message + ": " + msg
	return &c
}

func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

func sentinel(code domainerrors.Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	ErrNotFound      = sentinel(domainerrors.CodeNotFound, "resource not found")
	ErrAlreadyExists = sentinel(domainerrors.CodeConflict, "resource already exists")
	ErrInvalidInput  = sentinel(domainerrors.CodeValidation, "invalid input")
	ErrUnknownTable  = sentinel(domainerrors.CodeBadRequest, "unknown table")

	// ErrCycle is returned when a reparent would make a node its own ancestor.
	ErrCycle = sentinel(domainerrors.CodeValidation, "parent assignment would create a cycle")

	// ErrIntegrity is returned when a foreign key would be violated.
	ErrIntegrity = sentinel(domainerrors.CodeIntegrity, "referential integrity violation")

	// ErrSchemaMismatch is returned when restored rows do not fit the table.
	ErrSchemaMismatch = sentinel(domainerrors.CodeSchemaMismatch, "row shape does not match table")
)
