// Package domainerrors defines the error vocabulary shared by services and
// transport. Services return these; the HTTP layer translates codes to status
// codes without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error classification.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"

	// Verification policy failures. These block progress without consuming a
	// verification attempt.
	CodeAlreadyActiveSession    Code = "already_active_session"
	CodeSessionExpired          Code = "session_expired"
	CodeAttemptBudgetExceeded   Code = "attempt_budget_exceeded"
	CodeConcurrentModification  Code = "concurrent_modification"
	CodeIllegalStageTransition  Code = "illegal_stage_transition"
	CodeRetryNotAllowed         Code = "retry_not_allowed"

	// Infrastructure failures. Safe to retry, no session side effects.
	CodeProviderUnavailable Code = "provider_unavailable"
)

// Error carries a code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a domain code. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// GetCode extracts the code from an error, defaulting to CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps domain codes to HTTP status codes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyActiveSession, CodeConcurrentModification,
		CodeIllegalStageTransition, CodeRetryNotAllowed:
		return http.StatusConflict
	case CodeSessionExpired:
		return http.StatusGone
	case CodeAttemptBudgetExceeded:
		return http.StatusTooManyRequests
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
