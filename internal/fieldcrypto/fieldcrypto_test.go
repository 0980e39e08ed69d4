package fieldcrypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "careshield/pkg/domain-errors"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	e, err := New(key)
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	t.Run("rejects short keys", func(t *testing.T) {
		_, err := New(make([]byte, 16))
		require.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	e := newEngine(t)

	for _, plaintext := range []string{
		"john@example.com",
		"",
		"1985-04-12",
		"übergroße Straße 12, Berlin",
		"日本語のテキスト",
		strings.Repeat("x", 4096),
	} {
		envelope, err := e.EncryptField(plaintext)
		require.NoError(t, err)

		got, err := e.DecryptField(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEnvelopeShape(t *testing.T) {
	e := newEngine(t)

	envelope, err := e.EncryptField("secret")
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	require.Len(t, parts, 3)

	iv, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, iv, 16)

	tag, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestFreshIVPerCall(t *testing.T) {
	e := newEngine(t)

	a, err := e.EncryptField("same plaintext")
	require.NoError(t, err)
	b, err := e.EncryptField("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, strings.Split(a, ":")[0], strings.Split(b, ":")[0])
	assert.NotEqual(t, a, b)
}

func TestTamperDetection(t *testing.T) {
	e := newEngine(t)

	envelope, err := e.EncryptField("do not touch")
	require.NoError(t, err)

	// Flip one bit in each hex part in turn; decryption must fail, never
	// return wrong plaintext.
	for _, partIdx := range []int{0, 1, 2} {
		parts := strings.Split(envelope, ":")
		raw, err := hex.DecodeString(parts[partIdx])
		require.NoError(t, err)
		if len(raw) == 0 {
			continue
		}
		raw[0] ^= 0x01
		parts[partIdx] = hex.EncodeToString(raw)

		_, err = e.DecryptField(strings.Join(parts, ":"))
		require.Error(t, err, "part %d", partIdx)
		assert.True(t, errors.Is(err, ErrDecryptionFailed), "part %d", partIdx)
	}
}

func TestMalformedEnvelope(t *testing.T) {
	e := newEngine(t)

	for _, envelope := range []string{
		"",
		"plain value",
		"aa:bb",
		"aa:bb:cc:dd",
		"nothex:bb:cc",
	} {
		_, err := e.DecryptField(envelope)
		require.Error(t, err, "envelope %q", envelope)
		assert.True(t, errors.Is(err, ErrMalformedEnvelope), "envelope %q", envelope)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionError))
	}
}

func TestWrongKeyFailsAuthentication(t *testing.T) {
	a := newEngine(t)
	b := newEngine(t)

	envelope, err := a.EncryptField("sealed under a")
	require.NoError(t, err)

	_, err = b.DecryptField(envelope)
	assert.True(t, errors.Is(err, ErrDecryptionFailed))
}

func TestLooksLikeEnvelope(t *testing.T) {
	e := newEngine(t)
	envelope, err := e.EncryptField("value")
	require.NoError(t, err)

	assert.True(t, LooksLikeEnvelope(envelope))
	assert.False(t, LooksLikeEnvelope("john@example.com"))
	assert.False(t, LooksLikeEnvelope("a:b:c"))
	assert.False(t, LooksLikeEnvelope("::"))
}
