package incident

import (
	"time"

	"careshield/internal/audit"
)

// Type classifies a detected security condition.
type Type string

const (
	// TypeBruteForce covers repeated failed logins from one IP.
	TypeBruteForce Type = "BRUTE_FORCE_ATTEMPT"
	// TypeInjection covers SQL/script/path-traversal pattern matches in input.
	TypeInjection Type = "INJECTION_ATTEMPT"
	// TypeSuspiciousDataAccess covers privilege-escalation attempts against
	// protected personal data.
	TypeSuspiciousDataAccess Type = "SUSPICIOUS_DATA_ACCESS"
	// TypeRateLimitAbuse covers repeated rate-limit breaches.
	TypeRateLimitAbuse Type = "RATE_LIMIT_ABUSE"
	// TypeSessionHijack covers fingerprint mismatches treated as hijacks.
	TypeSessionHijack Type = "SESSION_HIJACK"
)

// Incident is a classified, persisted record of a detected condition,
// distinct from the raw events that triggered it. It is mutated only to
// append response actions or mark resolution, and never deleted; the
// compliance record keeps resolved incidents indefinitely.
type Incident struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Type            Type           `json:"incidentType"`
	Severity        audit.Severity `json:"severity"`
	UserID          string         `json:"userId,omitempty"`
	IP              string         `json:"ip"`
	Details         string         `json:"details"`
	Resolved        bool           `json:"resolved"`
	ResponseActions []string       `json:"responseActions"`
}

// severityFor maps each incident type to its fixed severity.
func severityFor(t Type) audit.Severity {
	switch t {
	case TypeSessionHijack:
		return audit.SeverityCritical
	case TypeBruteForce, TypeInjection, TypeSuspiciousDataAccess:
		return audit.SeverityHigh
	default:
		return audit.SeverityMedium
	}
}
