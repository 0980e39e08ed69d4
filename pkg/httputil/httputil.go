package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	dErrors "careshield/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for rejected requests. Code is the
// machine-readable taxonomy value; Error is a sanitized human message.
// Internal detail never reaches this envelope; server-class failures carry a
// random ErrorID correlating the response with the server-side log line.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	ErrorID    string `json:"errorId,omitempty"`
}

// exposeErrorIDs controls whether error ids are echoed to clients. Production
// keeps them server-side only.
var exposeErrorIDs atomic.Bool

// ExposeErrorIDs toggles client-visible error ids; the composition root
// enables this outside production so support can quote the id from a
// response straight into the logs.
func ExposeErrorIDs(expose bool) {
	exposeErrorIDs.Store(expose)
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates transport-agnostic domain errors into HTTP rejections.
// Security-relevant responses disable sniffing and caching. Server-class
// failures are logged with a random error id; the id is returned so callers
// can attach it to their own diagnostics, and reaches the client only when
// ExposeErrorIDs allows it.
func WriteError(w http.ResponseWriter, err error) string {
	code := dErrors.CodeInternal
	message := "An unexpected error occurred"

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		if domainErr.Message != "" {
			message = domainErr.Message
		} else {
			message = string(code)
		}
	}

	status := CodeToHTTPStatus(code)
	response := &ErrorResponse{
		Success: false,
		Error:   message,
		Code:    string(code),
	}

	var errorID string
	if status >= http.StatusInternalServerError {
		errorID = uuid.New().String()
		slog.Default().Error("request failed",
			"error_id", errorID,
			"code", string(code),
			"error", err,
		)
		if exposeErrorIDs.Load() {
			response.ErrorID = errorID
		}
	}

	SetSecurityHeaders(w)
	WriteJSON(w, status, response)
	return errorID
}

// SetSecurityHeaders applies the headers required on every security-relevant response.
func SetSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// CodeToHTTPStatus translates domain error codes to HTTP status codes.
func CodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeSessionExpired, dErrors.CodeSessionInvalid:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeCSRFTokenMissing, dErrors.CodeCSRFTokenInvalid,
		dErrors.CodeCSRFTokenSessionMismatch, dErrors.CodeIPBlocked:
		return http.StatusForbidden
	case dErrors.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case dErrors.CodeDecryptionError, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
