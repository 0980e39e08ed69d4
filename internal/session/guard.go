package session

import (
	"context"
	"net/http"
	"strings"

	"careshield/internal/audit"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

// CookieName carries the session ID.
const CookieName = "careshield_session"

// streamTokenParam is the per-request token used by streaming clients that
// cannot send headers (EventSource). Requests carrying it authenticate
// independently, so fingerprinting is advisory for them.
const streamTokenParam = "stream_token"

// exemptPaths have independent authentication or legitimately arrive from a
// different client than the one that created the session (e.g. an invitation
// link opened on a phone).
var exemptPaths = []string{
	"/api/security/csrf-token",
	"/api/invitations/accept",
	"/api/invitations/decline",
	"/api/notifications/stream",
}

// PrincipalLookup resolves the role and data-access flag for a user. The
// directory is an external collaborator; tests inject a map-backed lookup.
type PrincipalLookup func(ctx context.Context, userID string) (requestcontext.Principal, bool)

// Guard enforces fingerprint binding and inactivity timeouts per request.
type Guard struct {
	store     *Store
	emitter   audit.Emitter
	principal PrincipalLookup
	verify    func(token string) (string, error)
}

// GuardOption configures the guard.
type GuardOption func(*Guard)

// WithBearerVerifier makes the fingerprint exemption verify bearer and
// stream tokens instead of trusting their mere presence.
func WithBearerVerifier(issuer *TokenIssuer) GuardOption {
	return func(g *Guard) {
		g.verify = issuer.Verify
	}
}

func NewGuard(store *Store, emitter audit.Emitter, principal PrincipalLookup, opts ...GuardOption) *Guard {
	if principal == nil {
		principal = func(_ context.Context, userID string) (requestcontext.Principal, bool) {
			return requestcontext.Principal{UserID: userID}, true
		}
	}
	g := &Guard{store: store, emitter: emitter, principal: principal}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware validates the session cookie when present. Requests without a
// session pass through untouched; whether anonymous access is acceptable is
// the handler's decision, not the guard's.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		sessionID := cookie.Value

		sess, ok := g.store.Get(sessionID)
		if !ok {
			g.emitExpiry(r)
			httputil.WriteError(w, dErrors.New(dErrors.CodeSessionExpired, "session has expired"))
			return
		}

		if !g.store.Touch(sessionID) {
			g.emitExpiry(r)
			httputil.WriteError(w, dErrors.New(dErrors.CodeSessionExpired, "session has expired"))
			return
		}

		current := ComputeFingerprint(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx))

		switch {
		case sess.Fingerprint == "":
			g.store.BindFingerprint(sessionID, current)

		case FingerprintsMatch(sess.Fingerprint, current):
			// nothing to do

		case g.isExempt(r):
			// Independent authentication makes fingerprinting advisory here:
			// log the drift and adopt the new fingerprint.
			g.emitter.Emit(audit.Event{
				Type:      audit.EventSessionFingerprintMismatch,
				Severity:  audit.SeverityMedium,
				UserID:    sess.UserID,
				IP:        requestcontext.ClientIP(ctx),
				UserAgent: requestcontext.UserAgent(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Path:      r.URL.Path,
				Method:    r.Method,
			})
			g.store.BindFingerprint(sessionID, current)

		default:
			// Same session presented from a different client on a path with
			// no independent authentication: treat as hijack.
			g.store.Destroy(sessionID)
			g.emitter.Emit(audit.Event{
				Type:      audit.EventSessionHijackAttempt,
				Severity:  audit.SeverityCritical,
				UserID:    sess.UserID,
				IP:        requestcontext.ClientIP(ctx),
				UserAgent: requestcontext.UserAgent(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Path:      r.URL.Path,
				Method:    r.Method,
				Payload: map[string]any{
					"storedFingerprint":  sess.Fingerprint,
					"currentFingerprint": current,
				},
			})
			httputil.WriteError(w, dErrors.New(dErrors.CodeSessionInvalid, "session has been invalidated"))
			return
		}

		ctx = requestcontext.WithSessionID(ctx, sessionID)
		ctx = requestcontext.WithFingerprint(ctx, current)
		if principal, ok := g.principal(ctx, sess.UserID); ok {
			ctx = requestcontext.WithPrincipal(ctx, principal)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) emitExpiry(r *http.Request) {
	ctx := r.Context()
	g.emitter.Emit(audit.Event{
		Type:      audit.EventSessionExpired,
		Severity:  audit.SeverityLow,
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Path:      r.URL.Path,
		Method:    r.Method,
	})
}

// isExempt reports whether this request authenticates independently of the
// session cookie.
func (g *Guard) isExempt(r *http.Request) bool {
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if g.tokenAcceptable(bearer) {
			return true
		}
	}
	if token := r.URL.Query().Get(streamTokenParam); token != "" {
		if g.tokenAcceptable(token) {
			return true
		}
	}
	for _, p := range exemptPaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// tokenAcceptable checks an independent credential. Without a configured
// verifier the credential's presence is enough; with one it must verify.
func (g *Guard) tokenAcceptable(token string) bool {
	if token == "" {
		return false
	}
	if g.verify == nil {
		return true
	}
	_, err := g.verify(token)
	return err == nil
}
