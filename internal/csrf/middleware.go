package csrf

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"careshield/internal/audit"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

const (
	// CookieName is the http-only cookie carrying the issued token.
	// The __Host- prefix pins it to this host over HTTPS with Path=/.
	CookieName = "__Host-csrf"
	// HeaderName is where clients echo the token back.
	HeaderName = "X-CSRF-Token"
	// FieldName is the body/query fallback for non-AJAX form clients.
	FieldName = "csrf_token"
)

// bootstrapPaths bypass validation: a client cannot present a token before it
// has obtained one, authentication carries its own proof of intent, and the
// admin surface authenticates by explicit header rather than ambient cookie,
// which is the attack CSRF tokens exist to stop.
var bootstrapPaths = []string{
	"/api/auth/",
	"/api/security/",
	"/health",
	"/metrics",
}

// Middleware validates anti-forgery tokens on state-changing requests.
type Middleware struct {
	store   *Store
	emitter audit.Emitter
}

func NewMiddleware(store *Store, emitter audit.Emitter) *Middleware {
	return &Middleware{store: store, emitter: emitter}
}

// Protect is the validation middleware. Safe methods and bootstrap endpoints
// pass straight through; everything else must present an unused, unexpired
// token, which is consumed before the handler runs.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || isBootstrapPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		token := extractToken(r)
		sessionID := requestcontext.SessionID(ctx)

		if err := m.store.Validate(token, sessionID); err != nil {
			m.emitFailure(r, err)
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// emitFailure records the rejection synchronously before the response goes out.
func (m *Middleware) emitFailure(r *http.Request, err error) {
	ctx := r.Context()
	eventType := audit.EventCSRFTokenInvalid
	severity := audit.SeverityHigh
	if dErrors.HasCode(err, dErrors.CodeCSRFTokenMissing) {
		eventType = audit.EventCSRFTokenMissing
		severity = audit.SeverityMedium
	}

	m.emitter.Emit(audit.Event{
		Type:      eventType,
		Severity:  severity,
		UserID:    requestcontext.UserID(ctx),
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Path:      r.URL.Path,
		Method:    r.Method,
		Payload:   map[string]any{"code": string(dErrors.CodeOf(err))},
	})
}

// extractToken prefers the header, falling back to form then query values.
func extractToken(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	if token := formToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get(FieldName)
}

// maxFormRead bounds how much body the form fallback inspects.
const maxFormRead = 1 << 20

// formToken reads the token field from a urlencoded body without consuming
// it. Input screening runs after token validation and must see the same
// bytes, so the stdlib form parser (which drains the body) is off limits.
func formToken(r *http.Request) string {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return ""
	}
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFormRead))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return values.Get(FieldName)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func isBootstrapPath(path string) bool {
	for _, p := range bootstrapPaths {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

// SetCookie attaches the token to the response as a secure http-only cookie.
func SetCookie(w http.ResponseWriter, token *Token, secure bool) {
	name := CookieName
	if !secure {
		// __Host- requires the Secure attribute; plain-HTTP dev setups get
		// an unprefixed cookie instead of a silently rejected one.
		name = "csrf"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
