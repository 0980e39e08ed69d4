package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(clock *fakeClock, tiers map[Tier]TierConfig) *Limiter {
	return NewLimiter(tiers, WithLimiterClock(clock.Now))
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierGeneral: {Window: time.Minute, Limit: 3},
	})

	for i := 0; i < 3; i++ {
		result := limiter.Check(TierGeneral, "client-a", true)
		require.True(t, result.Allowed, "request %d should pass", i+1)
	}

	result := limiter.Check(TierGeneral, "client-a", true)
	assert.False(t, result.Allowed)
	assert.Equal(t, 3, result.Limit)
	assert.Equal(t, 0, result.Remaining)
	assert.GreaterOrEqual(t, result.RetryAfter, 1)
}

func TestLimiterWindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierGeneral: {Window: time.Minute, Limit: 2},
	})

	require.True(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
	clock.Advance(30 * time.Second)
	require.True(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
	require.False(t, limiter.Check(TierGeneral, "client-a", true).Allowed)

	// First timestamp falls out of the window; one slot opens up.
	clock.Advance(31 * time.Second)
	assert.True(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
	assert.False(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierGeneral: {Window: time.Minute, Limit: 1},
	})

	require.True(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
	require.False(t, limiter.Check(TierGeneral, "client-a", true).Allowed)
	assert.True(t, limiter.Check(TierGeneral, "client-b", true).Allowed)
}

func TestLimiterAnonymousCeiling(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierGeneral: {Window: time.Minute, Limit: 5, AnonLimit: 2},
	})

	require.True(t, limiter.Check(TierGeneral, "anon", false).Allowed)
	require.True(t, limiter.Check(TierGeneral, "anon", false).Allowed)
	assert.False(t, limiter.Check(TierGeneral, "anon", false).Allowed)

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Check(TierGeneral, "authed", true).Allowed)
	}
	assert.False(t, limiter.Check(TierGeneral, "authed", true).Allowed)
}

func TestSensitiveTierBlocksBeyondWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierSensitive: {Window: time.Minute, Limit: 1, BlockFor: 10 * time.Minute},
	})

	require.True(t, limiter.Check(TierSensitive, "client-a", true).Allowed)
	result := limiter.Check(TierSensitive, "client-a", true)
	require.False(t, result.Allowed)

	// Window drains but the block holds.
	clock.Advance(2 * time.Minute)
	result = limiter.Check(TierSensitive, "client-a", true)
	assert.False(t, result.Allowed)
	assert.GreaterOrEqual(t, result.RetryAfter, 1)

	clock.Advance(9 * time.Minute)
	assert.True(t, limiter.Check(TierSensitive, "client-a", true).Allowed)
}

func TestLimiterResetClearsCounterAndBlock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierSensitive: {Window: time.Minute, Limit: 1, BlockFor: time.Hour},
	})

	require.True(t, limiter.Check(TierSensitive, "client-a", true).Allowed)
	require.False(t, limiter.Check(TierSensitive, "client-a", true).Allowed)

	limiter.Reset(TierSensitive, "client-a")
	assert.True(t, limiter.Check(TierSensitive, "client-a", true).Allowed)
}

func TestLimiterUnknownTierPasses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{})

	assert.True(t, limiter.Check(TierAuth, "client-a", true).Allowed)
}

func TestLimiterSweepDropsDrainedState(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierSensitive: {Window: time.Minute, Limit: 1, BlockFor: 5 * time.Minute},
	})

	limiter.Check(TierSensitive, "client-a", true)
	limiter.Check(TierSensitive, "client-a", true) // trips the block

	clock.Advance(10 * time.Minute)
	removed := limiter.Sweep()
	assert.Equal(t, 2, removed) // drained bucket plus elapsed block
}

func TestDelayForScalesWithExcess(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock, map[Tier]TierConfig{
		TierAuth: {Window: 15 * time.Minute, Limit: 100},
	})
	cfg := DelayConfig{Threshold: 3, Step: time.Second, Max: 5 * time.Second}

	for i := 0; i < 3; i++ {
		limiter.Check(TierAuth, "client-a", false)
	}
	assert.Equal(t, time.Duration(0), limiter.DelayFor("client-a", cfg))

	limiter.Check(TierAuth, "client-a", false)
	assert.Equal(t, time.Second, limiter.DelayFor("client-a", cfg))

	limiter.Check(TierAuth, "client-a", false)
	assert.Equal(t, 2*time.Second, limiter.DelayFor("client-a", cfg))

	// Far past the threshold the cap holds.
	for i := 0; i < 20; i++ {
		limiter.Check(TierAuth, "client-a", false)
	}
	assert.Equal(t, 5*time.Second, limiter.DelayFor("client-a", cfg))
}

func TestClientKeySeparatesCallers(t *testing.T) {
	a := ClientKey("10.0.0.1", "curl/8.0", "user-1")
	b := ClientKey("10.0.0.1", "curl/8.0", "user-2")
	c := ClientKey("10.0.0.2", "curl/8.0", "user-1")
	d := ClientKey("10.0.0.1", "Mozilla/5.0", "user-1")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestClientKeyDelimiterInjection(t *testing.T) {
	// A crafted user ID must not collide with another caller's bucket.
	a := ClientKey("10.0.0.1", "ua", "user:1")
	b := ClientKey("10.0.0.1", "ua", "user_c1")
	assert.NotEqual(t, a, b)
}

func TestClientKeyAnonymousFallback(t *testing.T) {
	key := ClientKey("10.0.0.1", "ua", "")
	assert.Contains(t, key, "anonymous")
}
