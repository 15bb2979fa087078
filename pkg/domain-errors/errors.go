// Package domainerrors defines coded domain errors shared by services and the
// HTTP layer. Services return these; the transport layer maps codes onto HTTP
// statuses and the response envelope, so no handler ever string-matches error
// messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code. Codes are part of the API
// contract: clients branch on them (e.g. csrf_expired -> refresh the CSRF
// token, token_expired -> call the refresh endpoint).
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal_error"

	// Token verification outcomes. Distinct so clients know whether a refresh
	// attempt is worthwhile (token_expired) or pointless (token_invalid).
	CodeTokenInvalid Code = "token_invalid"
	CodeTokenExpired Code = "token_expired"

	// Dead server-side session, regardless of what the token signature claims.
	CodeSessionExpired Code = "session_expired"

	// CSRF verification outcomes, each user-facing and distinct.
	CodeCSRFMissing Code = "csrf_token_missing"
	CodeCSRFExpired Code = "csrf_token_expired"
	CodeCSRFInvalid Code = "csrf_token_invalid"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that preserves an underlying cause for logging
// while exposing only code and message to clients.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err is (or wraps) a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// GetCode extracts the code from err, defaulting to CodeInternal for anything
// that is not a domain error.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTokenInvalid, CodeCSRFMissing, CodeCSRFExpired, CodeCSRFInvalid:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
