package httptransport

import (
	"log/slog"
	"net/http"

	"careshield/internal/audit"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
	"careshield/pkg/secrets"
)

// AdminSecretHeader authenticates the /api/security surface.
const AdminSecretHeader = "X-Admin-Secret"

// RequireAdminSecret guards the admin surface with a bcrypt-verified shared
// secret. A failed attempt is audited as privilege escalation: reaching for
// the security controls without the secret is exactly what the incident
// engine should see.
func RequireAdminSecret(hash string, emitter audit.Emitter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash == "" {
				// No secret configured: the surface is disabled outright
				// rather than open.
				httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
				return
			}

			secret := r.Header.Get(AdminSecretHeader)
			if secret == "" || secrets.Verify(secret, hash) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin secret rejected",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				emitter.Emit(audit.Event{
					Type:      audit.EventPrivilegeEscalation,
					Severity:  audit.SeverityHigh,
					UserID:    requestcontext.UserID(ctx),
					IP:        requestcontext.ClientIP(ctx),
					UserAgent: requestcontext.UserAgent(ctx),
					RequestID: requestcontext.RequestID(ctx),
					Path:      r.URL.Path,
					Method:    r.Method,
				})
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin secret required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
