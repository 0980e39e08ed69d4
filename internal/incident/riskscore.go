package incident

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"careshield/internal/audit"
)

// Risk score weights. The score is advisory: it feeds dashboards and review
// queues and never gates a request.
const (
	volumeThreshold  = 100
	volumeWeight     = 20
	failedAuthWeight = 5
	failedAuthCap    = 25
	privEscWeight    = 10
	privEscCap       = 30
	afterHoursWeight = 10
	multiIPThreshold = 3
	multiIPWeight    = 15
	maxScore         = 100
)

// RiskScorer recomputes a 0-100 score per user from the rolling event window.
// Scores live in memory only; they are cheap to rebuild after a restart.
type RiskScorer struct {
	source EventSource
	window time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	scores map[string]int
}

// RiskScorerOption configures the scorer.
type RiskScorerOption func(*RiskScorer)

// WithRiskWindow overrides the rolling window (default 24h).
func WithRiskWindow(d time.Duration) RiskScorerOption {
	return func(s *RiskScorer) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithRiskClock injects a time source for tests.
func WithRiskClock(now func() time.Time) RiskScorerOption {
	return func(s *RiskScorer) { s.now = now }
}

// NewRiskScorer builds a scorer over the event source.
func NewRiskScorer(source EventSource, opts ...RiskScorerOption) *RiskScorer {
	s := &RiskScorer{
		source: source,
		window: 24 * time.Hour,
		now:    time.Now,
		scores: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recompute rebuilds every user's score from the current window and replaces
// the score map wholesale, so stale users drop to zero.
func (s *RiskScorer) Recompute() {
	events := s.source.Since(s.now().Add(-s.window))

	type userStats struct {
		total      int
		failedAuth int
		privEsc    int
		afterHours bool
		ips        map[string]struct{}
	}

	stats := make(map[string]*userStats)
	for _, ev := range events {
		if ev.UserID == "" || ev.UserID == "anonymous" {
			continue
		}
		st, ok := stats[ev.UserID]
		if !ok {
			st = &userStats{ips: make(map[string]struct{})}
			stats[ev.UserID] = st
		}
		st.total++
		switch ev.Type {
		case audit.EventLoginFailed:
			st.failedAuth++
		case audit.EventPrivilegeEscalation:
			st.privEsc++
		}
		if isAfterHours(ev.Timestamp) {
			st.afterHours = true
		}
		if ev.IP != "" {
			st.ips[ev.IP] = struct{}{}
		}
	}

	scores := make(map[string]int, len(stats))
	for userID, st := range stats {
		scores[userID] = scoreOf(st.total, st.failedAuth, st.privEsc, st.afterHours, len(st.ips))
	}

	s.mu.Lock()
	s.scores = scores
	s.mu.Unlock()
}

func scoreOf(total, failedAuth, privEsc int, afterHours bool, distinctIPs int) int {
	score := 0
	if total > volumeThreshold {
		score += volumeWeight
	}
	score += capped(failedAuth*failedAuthWeight, failedAuthCap)
	score += capped(privEsc*privEscWeight, privEscCap)
	if afterHours {
		score += afterHoursWeight
	}
	if distinctIPs >= multiIPThreshold {
		score += multiIPWeight
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

// isAfterHours reports whether the timestamp falls between 22:00 and 06:00.
func isAfterHours(t time.Time) bool {
	hour := t.Hour()
	return hour >= 22 || hour < 6
}

// Score returns a user's current risk score (zero if never scored).
func (s *RiskScorer) Score(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[userID]
}

// Snapshot returns a copy of all current scores for dashboard export.
func (s *RiskScorer) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		out[id] = score
	}
	return out
}

// StartRecomputing runs Recompute on an interval until the context is cancelled.
func (s *RiskScorer) StartRecomputing(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Recompute()
			if logger != nil {
				logger.Debug("risk scores recomputed", "users", len(s.Snapshot()))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
