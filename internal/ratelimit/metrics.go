package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes limiter behavior for dashboards.
type Metrics struct {
	RequestsAllowed *prometheus.CounterVec
	RequestsBlocked *prometheus.CounterVec
	DelaySeconds    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsAllowed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careshield_ratelimit_requests_allowed_total",
			Help: "Requests admitted by the rate limiter, by tier",
		}, []string{"tier"}),
		RequestsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careshield_ratelimit_requests_blocked_total",
			Help: "Requests rejected by the rate limiter, by tier",
		}, []string{"tier"}),
		DelaySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "careshield_ratelimit_progressive_delay_seconds",
			Help:    "Artificial delay applied to heavy auth callers",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
	}
}
