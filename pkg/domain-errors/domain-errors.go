package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in security terms, not HTTP terms.
// The upper-case codes are the machine-readable values surfaced to clients
// in error envelopes; the lower-case ones stay server-side.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"

	CodeValidation Code = "VALIDATION_ERROR"
	CodeInternal   Code = "SERVER_ERROR"

	// Request-security pipeline codes.
	CodeCSRFTokenMissing         Code = "CSRF_TOKEN_MISSING"
	CodeCSRFTokenInvalid         Code = "CSRF_TOKEN_INVALID"
	CodeCSRFTokenSessionMismatch Code = "CSRF_TOKEN_SESSION_MISMATCH"
	CodeRateLimitExceeded        Code = "RATE_LIMIT_EXCEEDED"
	CodeSessionExpired           Code = "SESSION_EXPIRED"
	CodeSessionInvalid           Code = "SESSION_INVALID"
	CodeDecryptionError          Code = "DECRYPTION_ERROR"
	CodeIPBlocked                Code = "IP_BLOCKED"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and middleware layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the domain code from an error, defaulting to CodeInternal
// for errors that carry no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
