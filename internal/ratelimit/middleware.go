package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"careshield/internal/audit"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

// Middleware wires the limiter into the request chain.
type Middleware struct {
	limiter *Limiter
	emitter audit.Emitter
	metrics *Metrics
	delay   DelayConfig
}

func NewMiddleware(limiter *Limiter, emitter audit.Emitter, metrics *Metrics, delay DelayConfig) *Middleware {
	return &Middleware{limiter: limiter, emitter: emitter, metrics: metrics, delay: delay}
}

// Limit enforces the tier's ceiling for every request passing through.
func (m *Middleware) Limit(tier Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			key := ClientKey(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx), userID)

			result := m.limiter.Check(tier, key, userID != "anonymous")
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.RequestsBlocked.WithLabelValues(string(tier)).Inc()
				}
				m.emitter.Emit(audit.Event{
					Type:      audit.EventRateLimitExceeded,
					Severity:  audit.SeverityMedium,
					UserID:    userID,
					IP:        requestcontext.ClientIP(ctx),
					UserAgent: requestcontext.UserAgent(ctx),
					RequestID: requestcontext.RequestID(ctx),
					Path:      r.URL.Path,
					Method:    r.Method,
					Payload: map[string]any{
						"tier":       string(tier),
						"limit":      result.Limit,
						"retryAfter": result.RetryAfter,
					},
				})
				writeRateLimitExceeded(w, result)
				return
			}

			if m.metrics != nil {
				m.metrics.RequestsAllowed.WithLabelValues(string(tier)).Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProgressiveDelay inserts increasing artificial latency for callers with
// heavy recent auth traffic. Independent of hard blocking; applied to
// authentication endpoints only. The sleep honors request cancellation.
func (m *Middleware) ProgressiveDelay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := ClientKey(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx), requestcontext.UserID(ctx))

		if delay := m.limiter.DelayFor(key, m.delay); delay > 0 {
			if m.metrics != nil {
				m.metrics.DelaySeconds.Observe(delay.Seconds())
			}
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.SetSecurityHeaders(w)
	httputil.WriteJSON(w, http.StatusTooManyRequests, &httputil.ErrorResponse{
		Success:    false,
		Error:      "Too many requests. Please try again later.",
		Code:       "RATE_LIMIT_EXCEEDED",
		RetryAfter: result.RetryAfter,
	})
}
