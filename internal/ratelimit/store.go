package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}

// slidingWindow holds the request timestamps inside one rolling window.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// tryConsume attempts to record a request in the window.
func (sw *slidingWindow) tryConsume(limit int, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	sw.cleanupExpired(now)

	if len(sw.timestamps)+1 > limit {
		resetAt := now.Add(sw.window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(sw.window)
		}
		return false, 0, resetAt
	}

	sw.timestamps = append(sw.timestamps, now)
	return true, limit - len(sw.timestamps), sw.timestamps[0].Add(sw.window)
}

func (sw *slidingWindow) count(now time.Time) int {
	sw.cleanupExpired(now)
	return len(sw.timestamps)
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// BucketStore tracks sliding windows per key in memory. Counters are
// ephemeral and reconstructible from traffic, so there is no durability.
type BucketStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

// NewBucketStore creates an empty store.
func NewBucketStore() *BucketStore {
	return &BucketStore{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// withClock injects a time source for tests.
func (s *BucketStore) withClock(now func() time.Time) *BucketStore {
	s.now = now
	return s
}

// Allow checks whether a request fits the window and records it if so.
func (s *BucketStore) Allow(key string, limit int, window time.Duration) *Result {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok || bucket.window != window {
		bucket = &slidingWindow{window: window}
		s.buckets[key] = bucket
	}
	allowed, remaining, resetAt := bucket.tryConsume(limit, now)

	return &Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}
}

// Count returns the current request count for a key without recording.
func (s *BucketStore) Count(key string) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok {
		return 0
	}
	return bucket.count(now)
}

// Reset clears the counter for one key.
func (s *BucketStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

// Sweep drops buckets whose windows have fully drained.
func (s *BucketStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, bucket := range s.buckets {
		if bucket.count(now) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

func retryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed {
		return 0
	}
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}
