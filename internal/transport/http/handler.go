// Package httptransport is the thin HTTP layer over the security pipeline:
// token issuance, the authentication demo endpoints, the admin security
// surface, and the protected care-record handlers. Handlers delegate to the
// owning components and never embed security logic themselves.
package httptransport

import (
	"context"
	"log/slog"

	"careshield/internal/audit"
	"careshield/internal/csrf"
	"careshield/internal/incident"
	"careshield/internal/session"
)

// Authenticator verifies login credentials against the workforce directory,
// an external collaborator. Tests inject a map-backed implementation.
type Authenticator func(ctx context.Context, email, password string) (userID string, err error)

// Handler carries the component handles the endpoints operate on.
type Handler struct {
	logger        *slog.Logger
	secureCookies bool

	tokens       *csrf.Store
	sessions     *session.Store
	issuer       *session.TokenIssuer
	emitter      audit.Emitter
	engine       *incident.Engine
	scorer       *incident.RiskScorer
	blocklist    *incident.BlockList
	responder    *incident.StoreResponder
	authenticate Authenticator

	carers *carerStore
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithSecureCookies marks issued cookies Secure (production deployments).
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *Handler) { h.secureCookies = secure }
}

// NewHandler wires the endpoints to their components.
func NewHandler(
	logger *slog.Logger,
	tokens *csrf.Store,
	sessions *session.Store,
	issuer *session.TokenIssuer,
	emitter audit.Emitter,
	engine *incident.Engine,
	scorer *incident.RiskScorer,
	blocklist *incident.BlockList,
	responder *incident.StoreResponder,
	authenticate Authenticator,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		logger:       logger,
		tokens:       tokens,
		sessions:     sessions,
		issuer:       issuer,
		emitter:      emitter,
		engine:       engine,
		scorer:       scorer,
		blocklist:    blocklist,
		responder:    responder,
		authenticate: authenticate,
		carers:       newCarerStore(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
