package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"careshield/internal/audit"
	"careshield/internal/csrf"
	"careshield/internal/session"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials against the directory and establishes a
// session. Failed attempts are audited synchronously: they are the raw
// material for brute-force detection.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email and password are required"))
		return
	}

	ctx := r.Context()
	userID, err := h.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.emitter.Emit(audit.Event{
			Type:      audit.EventLoginFailed,
			Severity:  audit.SeverityMedium,
			IP:        requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Path:      r.URL.Path,
			Method:    r.Method,
			Payload:   map[string]any{"email": req.Email},
		})
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	sess, err := h.sessions.Create(userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h.emitter.Emit(audit.Event{
		Type:      audit.EventLoginSuccess,
		Severity:  audit.SeverityLow,
		UserID:    userID,
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Path:      r.URL.Path,
		Method:    r.Method,
	})

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  userID,
	})
}

// handleLogout destroys the presented session and clears the cookie.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		h.sessions.Destroy(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleStreamToken mints a short-lived bearer token for streaming clients.
// Requires an established session; anonymous callers have nothing to stream.
func (h *Handler) handleStreamToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := requestcontext.GetPrincipal(ctx)
	if !ok || principal.UserID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "login required"))
		return
	}

	token, err := h.issuer.Issue(principal.UserID, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue stream token"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"streamToken": token,
	})
}

// handleIssueCSRFToken issues a one-time anti-forgery token, bound to the
// caller's session when one exists, and mirrors it into the token cookie.
func (h *Handler) handleIssueCSRFToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, err := h.tokens.Issue(requestcontext.SessionID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	csrf.SetCookie(w, token, h.secureCookies)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"csrfToken": token.Value,
		"expiresAt": token.ExpiresAt.Format(time.RFC3339),
	})
}
