// Package config builds runtime configuration from the environment so main
// stays lean. Every tunable of the security pipeline lives here; components
// receive plain values and never read the environment themselves.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tier holds a window/limit pair for one rate-limit class.
type Tier struct {
	Window time.Duration
	Limit  int
	// BlockFor extends the rejection beyond the window once the limit is
	// exhausted. Zero means no extra block.
	BlockFor time.Duration
}

// Config captures everything the request-security pipeline needs at startup.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string

	// FieldEncryptionKey is the 32-byte AES key for protected fields.
	FieldEncryptionKey []byte
	// SessionSecret signs bearer tokens accepted by the session guard exemption.
	SessionSecret []byte
	// AdminSecretHash is a bcrypt hash guarding the /api/security admin surface.
	AdminSecretHash string

	CSRFTokenTTL   time.Duration
	SessionTimeout time.Duration
	// SharedSessionStore enables CSRF token session binding enforcement.
	// Without a durable shared session store the binding is advisory-only
	// to avoid false positives across replicas.
	SharedSessionStore bool

	GeneralTier        Tier
	GeneralAnonLimit   int
	AuthTier           Tier
	SensitiveTier      Tier
	DelayThreshold     int
	DelayStep          time.Duration
	DelayMax           time.Duration
	BruteForceWindow   time.Duration
	BruteForceLimit    int
	IncidentScanEvery  time.Duration
	RiskRecomputeEvery time.Duration

	ProtectedFields []string
	ExemptPaths     []string

	AuditDBPath    string
	AuditNATSURL   string
	TrustedProxies []string
}

// defaultProtectedFields covers the sensitive personal data handled by care
// records: identity, contact, clinical and financial identifiers.
var defaultProtectedFields = []string{
	"dob", "dateofbirth", "ssn", "nationalinsurance", "nhsnumber",
	"phone", "email", "address", "postcode",
	"diagnosis", "medication", "allergies", "medicalhistory",
	"emergencycontact", "bankaccount", "sortcode",
}

// defaultExemptPaths are never encrypted or masked: authentication exchanges
// plaintext credentials, operational endpoints carry no personal data, and
// invitation acceptance runs before any session exists.
var defaultExemptPaths = []string{
	"/api/auth",
	"/api/security/csrf-token",
	"/api/invitations/accept",
	"/api/invitations/decline",
	"/health",
	"/metrics",
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:        envOr("CARESHIELD_ADDR", ":8080"),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		AdminSecretHash: os.Getenv("ADMIN_SECRET_HASH"),

		CSRFTokenTTL:       envDuration("CSRF_TOKEN_TTL", 2*time.Hour),
		SessionTimeout:     time.Duration(envInt("SESSION_TIMEOUT_MINUTES", 30)) * time.Minute,
		SharedSessionStore: os.Getenv("SHARED_SESSION_STORE") == "true",

		GeneralTier: Tier{
			Window: envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Limit:  envInt("RATE_LIMIT_MAX", 300),
		},
		GeneralAnonLimit: envInt("RATE_LIMIT_MAX_ANONYMOUS", 100),
		AuthTier: Tier{
			Window: envDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
			Limit:  envInt("AUTH_RATE_LIMIT_MAX", 10),
		},
		SensitiveTier: Tier{
			Window:   envDuration("SENSITIVE_RATE_LIMIT_WINDOW", time.Hour),
			Limit:    envInt("SENSITIVE_RATE_LIMIT_MAX", 30),
			BlockFor: envDuration("SENSITIVE_RATE_LIMIT_BLOCK", time.Hour),
		},
		DelayThreshold: envInt("PROGRESSIVE_DELAY_THRESHOLD", 3),
		DelayStep:      envDuration("PROGRESSIVE_DELAY_STEP", 500*time.Millisecond),
		DelayMax:       envDuration("PROGRESSIVE_DELAY_MAX", 10*time.Second),

		BruteForceWindow:   envDuration("BRUTE_FORCE_WINDOW", time.Hour),
		BruteForceLimit:    envInt("BRUTE_FORCE_LIMIT", 10),
		IncidentScanEvery:  envDuration("INCIDENT_SCAN_INTERVAL", time.Minute),
		RiskRecomputeEvery: envDuration("RISK_RECOMPUTE_INTERVAL", 5*time.Minute),

		ProtectedFields: defaultProtectedFields,
		ExemptPaths:     defaultExemptPaths,

		AuditDBPath:  envOr("AUDIT_DB_PATH", "careshield-audit.db"),
		AuditNATSURL: os.Getenv("AUDIT_NATS_URL"),
	}

	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	if raw := os.Getenv("FIELD_ENCRYPTION_KEY"); raw != "" {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY: %w", err)
		}
		cfg.FieldEncryptionKey = key
	}

	if raw := os.Getenv("SESSION_SECRET"); raw != "" {
		cfg.SessionSecret = []byte(raw)
	}

	if path := os.Getenv("PROTECTED_FIELDS_FILE"); path != "" {
		fields, err := loadProtectedFields(path)
		if err != nil {
			return nil, fmt.Errorf("PROTECTED_FIELDS_FILE: %w", err)
		}
		cfg.ProtectedFields = fields
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether this deployment must refuse insecure fallbacks.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// validate enforces the fail-fast contract: a production deployment without
// key material must not start.
func (c *Config) validate() error {
	if c.IsProduction() {
		if len(c.FieldEncryptionKey) == 0 {
			return fmt.Errorf("FIELD_ENCRYPTION_KEY is required in production")
		}
		if len(c.SessionSecret) == 0 {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
	}
	if c.FieldEncryptionKey != nil && len(c.FieldEncryptionKey) != 32 {
		return fmt.Errorf("FIELD_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(c.FieldEncryptionKey))
	}
	return nil
}

// decodeKey accepts hex or base64 encoded key material.
func decodeKey(raw string) ([]byte, error) {
	if key, err := hex.DecodeString(raw); err == nil {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("must be hex or base64 encoded")
}

// protectedFieldsFile is the YAML shape of an external protected-field list.
type protectedFieldsFile struct {
	ProtectedFields []string `yaml:"protected_fields"`
}

func loadProtectedFields(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f protectedFieldsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.ProtectedFields) == 0 {
		return nil, fmt.Errorf("no protected_fields entries in %s", path)
	}
	return f.ProtectedFields, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
