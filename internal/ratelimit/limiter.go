// Package ratelimit enforces per-identity request ceilings across three
// tiers and applies progressive delay to callers hammering authentication
// endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// TierConfig holds the window/limit pair for one tier. AnonLimit, when set,
// is the lower ceiling applied to unauthenticated callers. BlockFor extends
// the rejection beyond the window once the limit is exhausted.
type TierConfig struct {
	Window    time.Duration
	Limit     int
	AnonLimit int
	BlockFor  time.Duration
}

// Limiter owns the counters and block list for all tiers. It is explicit
// state passed by handle, never a package global, so tests run isolated
// instances.
type Limiter struct {
	tiers map[Tier]TierConfig
	store *BucketStore

	mu           sync.Mutex
	blockedUntil map[string]time.Time
	now          func() time.Time
}

// LimiterOption configures the Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock injects a time source for tests (also applied to the store).
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
		l.store.withClock(now)
	}
}

// NewLimiter builds a limiter over the given tier table.
func NewLimiter(tiers map[Tier]TierConfig, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		tiers:        tiers,
		store:        NewBucketStore(),
		blockedUntil: make(map[string]time.Time),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a request against the tier's window. authenticated selects
// the higher ceiling where the tier distinguishes. A tier with BlockFor set
// keeps rejecting until the block elapses, even after the window drains.
func (l *Limiter) Check(tier Tier, clientKey string, authenticated bool) *Result {
	cfg, ok := l.tiers[tier]
	if !ok {
		return &Result{Allowed: true}
	}

	key := bucketKey(tier, clientKey)
	now := l.now()

	if until, blocked := l.blockExpiry(key, now); blocked {
		return &Result{
			Allowed:    false,
			Limit:      cfg.Limit,
			Remaining:  0,
			ResetAt:    until,
			RetryAfter: retryAfterSeconds(false, until, now),
		}
	}

	limit := cfg.Limit
	if !authenticated && cfg.AnonLimit > 0 {
		limit = cfg.AnonLimit
	}

	result := l.store.Allow(key, limit, cfg.Window)

	if !result.Allowed && cfg.BlockFor > 0 {
		until := now.Add(cfg.BlockFor)
		l.mu.Lock()
		l.blockedUntil[key] = until
		l.mu.Unlock()
		result.ResetAt = until
		result.RetryAfter = retryAfterSeconds(false, until, now)
	}

	return result
}

// Count reports the caller's current request count in a tier window without
// recording a request. The progressive delay calculator uses this.
func (l *Limiter) Count(tier Tier, clientKey string) int {
	return l.store.Count(bucketKey(tier, clientKey))
}

// Reset clears the caller's counter and block in one tier.
func (l *Limiter) Reset(tier Tier, clientKey string) {
	key := bucketKey(tier, clientKey)
	l.store.Reset(key)
	l.mu.Lock()
	delete(l.blockedUntil, key)
	l.mu.Unlock()
}

// Sweep drops drained buckets and elapsed blocks.
func (l *Limiter) Sweep() int {
	removed := l.store.Sweep()
	now := l.now()

	l.mu.Lock()
	for key, until := range l.blockedUntil {
		if now.After(until) {
			delete(l.blockedUntil, key)
			removed++
		}
	}
	l.mu.Unlock()
	return removed
}

func (l *Limiter) blockExpiry(key string, now time.Time) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blockedUntil[key]
	if !ok {
		return time.Time{}, false
	}
	if now.After(until) {
		delete(l.blockedUntil, key)
		return time.Time{}, false
	}
	return until, true
}

// DelayConfig tunes the progressive throttle.
type DelayConfig struct {
	// Threshold is the request count within the auth window above which
	// delay starts.
	Threshold int
	// Step is the additional delay per request beyond the threshold.
	Step time.Duration
	// Max caps the total delay.
	Max time.Duration
}

// DelayFor computes the artificial latency for a caller based on recent auth
// traffic. Zero below the threshold, then linear in the excess, capped at Max.
// This degrades brute-force tooling without denying legitimate retries.
func (l *Limiter) DelayFor(clientKey string, cfg DelayConfig) time.Duration {
	count := l.Count(TierAuth, clientKey)
	if count <= cfg.Threshold {
		return 0
	}
	delay := time.Duration(count-cfg.Threshold) * cfg.Step
	if delay > cfg.Max {
		return cfg.Max
	}
	return delay
}
