// Package pipeline assembles the request security chain: every inbound
// request passes the blocked-IP gate, audit logging, session guard, rate
// limiting, CSRF validation, input-pattern screening, and field protection
// before and after the handler. The pipeline owns all mutable security state
// by handle so tests run many independent instances.
package pipeline

import (
	"net/http"

	"careshield/internal/audit"
	"careshield/internal/csrf"
	"careshield/internal/incident"
	"careshield/internal/platform/tracer"
	"careshield/internal/protect"
	"careshield/internal/ratelimit"
	"careshield/internal/session"
)

// Pipeline holds the component handles the chain is built from.
type Pipeline struct {
	emitter   audit.Emitter
	blocklist *incident.BlockList
	guard     *session.Guard
	limits    *ratelimit.Middleware
	csrf      *csrf.Middleware
	protector *protect.Protector
	tracer    tracer.Tracer
	metrics   *Metrics
	exempt    []string
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithTracer overrides the no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithMetrics attaches prometheus counters to the pipeline stages.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithExemptPaths excludes path prefixes from field encryption and masking.
// Credentials posted to authentication endpoints must stay plaintext for
// verification, and operational endpoints carry no personal data.
func WithExemptPaths(paths []string) Option {
	return func(p *Pipeline) { p.exempt = paths }
}

// New builds a pipeline over its collaborators.
func New(
	emitter audit.Emitter,
	blocklist *incident.BlockList,
	guard *session.Guard,
	limits *ratelimit.Middleware,
	csrfMiddleware *csrf.Middleware,
	protector *protect.Protector,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		emitter:   emitter,
		blocklist: blocklist,
		guard:     guard,
		limits:    limits,
		csrf:      csrfMiddleware,
		protector: protector,
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chain returns the common middleware stack in pipeline order. The router
// applies it with r.Use; tier-specific rate limits and the progressive delay
// are added per route group on top of this.
func (p *Pipeline) Chain() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		p.stage("gate.blocked_ip", p.GateBlockedIPs),
		p.stage("audit.request", p.AuditRequests),
		p.stage("session.guard", p.guard.Middleware),
		p.stage("ratelimit.general", p.limits.Limit(ratelimit.TierGeneral)),
		p.stage("csrf.protect", p.csrf.Protect),
		p.stage("input.validate", p.ScreenInput),
		p.stage("fields.encrypt", p.EncryptRequests),
		p.stage("fields.protect", p.ProtectResponses),
	}
}

// AuthLimit is the stricter ceiling plus progressive delay for
// authentication endpoints.
func (p *Pipeline) AuthLimit() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		p.stage("ratelimit.auth", p.limits.Limit(ratelimit.TierAuth)),
		p.stage("ratelimit.delay", p.limits.ProgressiveDelay),
	}
}

// SensitiveLimit is the strictest ceiling, with a hard block after
// exhaustion, for high-value operations.
func (p *Pipeline) SensitiveLimit() func(http.Handler) http.Handler {
	return p.stage("ratelimit.sensitive", p.limits.Limit(ratelimit.TierSensitive))
}

// stage wraps a middleware so each request opens a span while the stage (and
// everything inside it) runs. Stages nest, so the trace shows the chain.
func (p *Pipeline) stage(name string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := p.tracer.Start(r.Context(), name)
			defer span.End(nil)
			wrapped.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
