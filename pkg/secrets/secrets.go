// Package secrets generates random token material and wraps bcrypt for the
// places a secret must be stored for later verification rather than compared
// in plaintext.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "careshield/pkg/domain-errors"
)

// DefaultSecretLength is the entropy, in bytes, behind Generate. 32 bytes
// keeps generated secrets beyond brute-force reach while staying under the
// 72-byte bcrypt input ceiling once encoded.
const DefaultSecretLength = 32

// Generate returns a url-safe random secret with DefaultSecretLength bytes
// of entropy.
func Generate() (string, error) {
	return GenerateN(DefaultSecretLength)
}

// GenerateN returns a url-safe base64 secret backed by n random bytes.
// Callers with tighter wire-size constraints pick their own n; anything
// below 16 bytes is refused as too guessable.
func GenerateN(n int) (string, error) {
	if n < 16 {
		return "", dErrors.New(dErrors.CodeValidation, "secret length below minimum")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash produces a bcrypt hash of the secret for at-rest storage.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}

// Verify compares a plaintext secret against its stored bcrypt hash.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid secret")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify secret")
	}
	return nil
}
