package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints and verifies the short-lived bearer tokens used by
// clients that cannot send cookies or custom headers (EventSource streams,
// invitation links). A request carrying a valid token authenticates
// independently of its session cookie, which is why the guard treats it as
// fingerprint-exempt.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer over the shared session secret.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

type streamClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issue mints a token bound to the user (and optionally the session).
func (i *TokenIssuer) Issue(userID, sessionID string) (string, error) {
	now := i.now()
	claims := streamClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "careshield",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign stream token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the user it was issued to.
func (i *TokenIssuer) Verify(raw string) (string, error) {
	claims := &streamClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer("careshield"))
	if err != nil {
		return "", fmt.Errorf("verify stream token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("stream token carries no subject")
	}
	return claims.Subject, nil
}
