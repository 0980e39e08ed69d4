package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 2*time.Hour, cfg.CSRFTokenTTL)
		assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
		assert.Equal(t, 10, cfg.AuthTier.Limit)
		assert.Equal(t, time.Hour, cfg.SensitiveTier.BlockFor)
		assert.Contains(t, cfg.ProtectedFields, "nhsnumber")
		assert.Contains(t, cfg.ExemptPaths, "/api/auth")
		assert.False(t, cfg.SharedSessionStore)
	})

	t.Run("production requires key material", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FIELD_ENCRYPTION_KEY")
	})

	t.Run("production starts with secrets set", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("FIELD_ENCRYPTION_KEY", hex.EncodeToString(make([]byte, 32)))
		t.Setenv("SESSION_SECRET", "super-secret-signing-key")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Len(t, cfg.FieldEncryptionKey, 32)
	})

	t.Run("rejects wrong-length keys", func(t *testing.T) {
		t.Setenv("FIELD_ENCRYPTION_KEY", hex.EncodeToString(make([]byte, 16)))

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("loads protected fields from yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fields.yaml")
		require.NoError(t, os.WriteFile(path, []byte("protected_fields:\n  - passport\n  - visa\n"), 0o600))
		t.Setenv("PROTECTED_FIELDS_FILE", path)

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"passport", "visa"}, cfg.ProtectedFields)
	})

	t.Run("tier overrides from env", func(t *testing.T) {
		t.Setenv("AUTH_RATE_LIMIT_MAX", "5")
		t.Setenv("AUTH_RATE_LIMIT_WINDOW", "1m")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.AuthTier.Limit)
		assert.Equal(t, time.Minute, cfg.AuthTier.Window)
	})
}
