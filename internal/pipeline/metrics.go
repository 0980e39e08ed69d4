package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts security-relevant pipeline outcomes.
type Metrics struct {
	BlockedIPRejections prometheus.Counter
	SuspiciousInput     *prometheus.CounterVec
	ProtectedResponses  *prometheus.CounterVec
	AuditEvents         *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BlockedIPRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "careshield_pipeline_blocked_ip_rejections_total",
			Help: "Requests rejected at the gate because the source IP is blocked",
		}),
		SuspiciousInput: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careshield_pipeline_suspicious_input_total",
			Help: "Requests rejected by input screening, by pattern class",
		}, []string{"pattern"}),
		ProtectedResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careshield_pipeline_protected_responses_total",
			Help: "Responses post-processed for field protection, by mode",
		}, []string{"mode"}),
		AuditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careshield_pipeline_audit_events_total",
			Help: "Audit events emitted by the pipeline, by type",
		}, []string{"eventType"}),
	}
}
