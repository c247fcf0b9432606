// Package apperr defines the error taxonomy shared by services and handlers.
//
// Services return *Error values (usually package-level sentinels) and handlers
// map the Kind to an HTTP status. Anything that is not an *Error is treated as
// an infrastructure fault.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindInfrastructure Kind = "infrastructure"
)

// Error is a caller-visible failure. Field and Value are only set for
// validation errors that point at a specific input.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Value   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind and Code so that a freshly built error compares equal
// to the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code, Message: message}
}

// InvalidChoice reports a value outside the allowed set for field.
func InvalidChoice(field, value string) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Code:    "invalid_choice",
		Message: fmt.Sprintf("select a valid choice, %q is not one of the available choices", value),
		Value:   value,
	}
}

func Required(field string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: "required", Message: "this field is required"}
}

func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// Infrastructure wraps a persistence or runtime fault. The message is kept
// generic; the cause stays available through Unwrap for logging.
func Infrastructure(op string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: op, Message: "internal error", Err: err}
}

// WithValue returns a copy of e carrying the offending input value.
func (e *Error) WithValue(v string) *Error {
	cp := *e
	cp.Value = v
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// From extracts the *Error from err. Unknown errors become infrastructure
// errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Infrastructure("unknown", err)
}

// KindOf returns the Kind of err, or KindInfrastructure for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
