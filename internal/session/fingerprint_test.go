package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeLinux   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromePatched = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.71 Safari/537.36"
	firefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func TestComputeFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := ComputeFingerprint("203.0.113.9", chromeLinux)
		b := ComputeFingerprint("203.0.113.9", chromeLinux)
		assert.Equal(t, a, b)
	})

	t.Run("differs by ip", func(t *testing.T) {
		a := ComputeFingerprint("203.0.113.9", chromeLinux)
		b := ComputeFingerprint("203.0.113.10", chromeLinux)
		assert.NotEqual(t, a, b)
	})

	t.Run("differs by browser", func(t *testing.T) {
		a := ComputeFingerprint("203.0.113.9", chromeLinux)
		b := ComputeFingerprint("203.0.113.9", firefoxLinux)
		assert.NotEqual(t, a, b)
	})

	t.Run("stable across patch releases of the same browser", func(t *testing.T) {
		a := ComputeFingerprint("203.0.113.9", chromeLinux)
		b := ComputeFingerprint("203.0.113.9", chromePatched)
		assert.Equal(t, a, b)
	})

	t.Run("empty user agent still produces a value", func(t *testing.T) {
		assert.NotEmpty(t, ComputeFingerprint("203.0.113.9", ""))
	})
}

func TestFingerprintsMatch(t *testing.T) {
	fp := ComputeFingerprint("203.0.113.9", chromeLinux)
	assert.True(t, FingerprintsMatch(fp, fp))
	assert.False(t, FingerprintsMatch(fp, ComputeFingerprint("203.0.113.9", firefoxLinux)))
}
