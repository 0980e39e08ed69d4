package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careshield/internal/pipeline"
	"careshield/internal/platform/middleware"
)

// RouterConfig carries the transport-level tunables.
type RouterConfig struct {
	AdminSecretHash string
	TrustedProxies  []string
	BodyLimit       int64
	RequestTimeout  time.Duration
	// Registry serves /metrics; nil disables the endpoint.
	Registry *prometheus.Registry
}

// NewRouter assembles the full chain: platform middleware, the security
// pipeline, then the route tree with per-group rate-limit tiers.
func NewRouter(h *Handler, p *pipeline.Pipeline, cfg RouterConfig) http.Handler {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata(&middleware.MetadataConfig{
		TrustedProxies: middleware.ParseTrustedProxies(cfg.TrustedProxies),
	}))
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.BodyLimit(cfg.BodyLimit))
	r.Use(p.Chain()...)

	r.Get("/health", h.handleHealth)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/auth", func(r chi.Router) {
		for _, mw := range p.AuthLimit() {
			r.Use(mw)
		}
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Post("/stream-token", h.handleStreamToken)
	})

	r.Route("/api/security", func(r chi.Router) {
		r.Get("/csrf-token", h.handleIssueCSRFToken)

		r.Group(func(r chi.Router) {
			r.Use(p.SensitiveLimit())
			r.Use(RequireAdminSecret(cfg.AdminSecretHash, h.emitter, h.logger))

			r.Get("/incidents", h.handleListIncidents)
			r.Post("/incidents/{id}/resolve", h.handleResolveIncident)
			r.Get("/risk-scores", h.handleRiskScores)
			r.Get("/risk-scores/{userID}", h.handleRiskScore)
			r.Get("/blocked-ips", h.handleBlockedIPs)
			r.Delete("/blocked-ips", h.handleClearBlockedIPs)
			r.Delete("/blocked-ips/{ip}", h.handleUnblockIP)
			r.Get("/flagged-users", h.handleFlaggedUsers)
		})
	})

	r.Route("/api/carers", func(r chi.Router) {
		r.Get("/", h.handleListCarers)
		r.Post("/", h.handleCreateCarer)
		r.Get("/{id}", h.handleGetCarer)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
