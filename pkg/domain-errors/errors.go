// Package domainerrors carries coded errors across layers. Services return these
// so transports can pick a status without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded error. Cause is optional and is exposed through Unwrap so
// errors.Is keeps working against wrapped sentinels.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an existing error. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Cause: err}
}

// Recode replaces the outermost code of a coded error, keeping its message
// and cause. Uncoded errors are wrapped with code and their own text.
func Recode(err error, code Code) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return &Error{Code: code, Message: de.Message, Cause: de.Cause}
	}
	return &Error{Code: code, Message: err.Error(), Cause: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error was never classified.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Cause
	}
	return false
}

// Sentinel builds a comparable sentinel error with a stable reason that
// transports expose next to the code, so clients can tell apart failures
// sharing one code.
func Sentinel(reason, msg string) error {
	return &sentinelError{reason: reason, msg: msg}
}

type sentinelError struct {
	reason string
	msg    string
}

func (e *sentinelError) Error() string  { return e.msg }
func (e *sentinelError) Reason() string { return e.reason }

// ReasonOf returns the reason of the first sentinel in the chain, or "".
func ReasonOf(err error) string {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		return r.Reason()
	}
	return ""
}

// Is is errors.Is, re-exported so call sites only need one import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
