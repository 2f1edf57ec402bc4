// Package apperr defines the error taxonomy shared by the lead access layer.
//
// Every error carries a Code. errors.Is matches on the code alone, so callers
// test against the package sentinels:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeAuthentication Code = "AUTHENTICATION"
	CodeAuthorization  Code = "AUTHORIZATION"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidState   Code = "INVALID_STATE"
	CodeDependency     Code = "DEPENDENCY"
	CodeValidation     Code = "VALIDATION"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

var (
	ErrAuthentication = &Error{Code: CodeAuthentication, Message: "not authenticated"}
	ErrAuthorization  = &Error{Code: CodeAuthorization, Message: "not authorized"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidState   = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrDependency     = &Error{Code: CodeDependency, Message: "dependency failure"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "invalid input"}
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Authentication(message string) *Error { return New(CodeAuthentication, message) }
func Authorization(message string) *Error  { return New(CodeAuthorization, message) }
func NotFound(message string) *Error       { return New(CodeNotFound, message) }
func InvalidState(message string) *Error   { return New(CodeInvalidState, message) }
func Validation(message string) *Error     { return New(CodeValidation, message) }

// Dependency wraps a row-store or collaborator failure. A nil err yields nil.
// An err that already carries a code is returned unchanged.
func Dependency(err error, message string) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return &Error{Code: CodeDependency, Message: message, Cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
