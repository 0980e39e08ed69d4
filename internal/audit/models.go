package audit

import "time"

// Severity grades how security-relevant an event is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// EventType enumerates the security event taxonomy.
type EventType string

const (
	EventRequest                    EventType = "REQUEST"
	EventResponse                   EventType = "RESPONSE"
	EventLoginFailed                EventType = "LOGIN_FAILED"
	EventLoginSuccess               EventType = "LOGIN_SUCCESS"
	EventRateLimitExceeded          EventType = "RATE_LIMIT_EXCEEDED"
	EventCSRFTokenMissing           EventType = "CSRF_TOKEN_MISSING"
	EventCSRFTokenInvalid           EventType = "CSRF_TOKEN_INVALID"
	EventSessionFingerprintMismatch EventType = "SESSION_FINGERPRINT_MISMATCH"
	EventSessionHijackAttempt       EventType = "SESSION_HIJACK_ATTEMPT"
	EventSessionExpired             EventType = "SESSION_EXPIRED"
	EventSuspiciousInput            EventType = "SUSPICIOUS_INPUT"
	EventDecryptionFailure          EventType = "DECRYPTION_FAILURE"
	EventPrivilegeEscalation        EventType = "PRIVILEGE_ESCALATION_ATTEMPT"
	EventElevatedDataAccess         EventType = "ELEVATED_DATA_ACCESS"
)

// Event is one security-relevant observation. Events are immutable once
// created; the log is append-only.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"eventType"`
	Severity  Severity       `json:"severity"`
	UserID    string         `json:"userId,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Path      string         `json:"path,omitempty"`
	Method    string         `json:"method,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Emitter is the producer-side contract. Middlewares depend on this rather
// than the concrete publisher so tests can capture events synchronously.
type Emitter interface {
	Emit(event Event)
}
