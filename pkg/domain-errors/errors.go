// Package domainerrors defines the caller-facing error taxonomy for the
// custody ledger. Services construct these; transport translates them to HTTP.
// Stores never return them directly - stores return sentinel errors and the
// service layer decides the domain meaning.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a recoverable, caller-facing failure class.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeValidation         Code = "validation_error"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeImmutableField     Code = "immutable_field"
	CodeSelfApproval       Code = "self_approval"
	CodeAlreadyResolved    Code = "already_resolved"
	CodeOutOfOrderApproval Code = "out_of_order_approval"
	CodeNotFinal           Code = "not_final"
	CodeIntegrityMismatch  Code = "integrity_mismatch"
	CodeBusy               Code = "busy"
	CodeUnauthorized       Code = "unauthorized"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Error carries a code for programmatic handling and a message safe to show to
// the operator recording custody actions.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a domain code to an underlying error without losing the cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, matching call sites that treat codes
// like sentinel values.
func Is(err error, code Code) bool { return HasCode(err, code) }

// MessageOf returns the caller-facing message, or a generic one for
// non-domain errors so internal details never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to its HTTP status. Unknown codes map to 500
// so a forgotten mapping fails safe.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeImmutableField, CodeAlreadyResolved, CodeOutOfOrderApproval, CodeNotFinal:
		return http.StatusConflict
	case CodeSelfApproval:
		return http.StatusForbidden
	case CodeIntegrityMismatch:
		return http.StatusUnprocessableEntity
	case CodeBusy:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
