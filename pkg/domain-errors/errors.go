// Package domainerrors is the tagged error type shared by services. Callers
// match on Code instead of comparing message strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for handling decisions (skip, downgrade, retry).
type Code string

const (
	CodeValidation     Code = "validation"
	CodeNotFound       Code = "not_found"
	CodeConflict       Code = "conflict"
	// CodePrecondition marks a caller contract violation. Never retried.
	CodePrecondition   Code = "precondition"
	// CodeAlreadyRemoved marks a resource that an external system already deleted.
	CodeAlreadyRemoved Code = "already_removed"
	CodeExternal       Code = "external"
	CodeInternal       Code = "internal"
)

// Error carries a Code, a safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost Code in the chain, or CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any Error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
