// Package requestcontext carries per-request metadata through context using
// unexported typed keys, so packages never collide on context values.
package requestcontext

import "context"

type requestIDKey struct{}
type clientIPKey struct{}
type userAgentKey struct{}
type sessionIDKey struct{}
type principalKey struct{}
type fingerprintKey struct{}

// Principal is the authenticated caller as resolved by the auth middleware.
// Role and DataAccess drive the field-protection authorization decision.
type Principal struct {
	UserID     string
	Role       string
	DataAccess bool
}

// Elevated reports whether the principal may read protected fields in clear.
func (p Principal) Elevated() bool {
	return p.Role == "admin" || p.Role == "coordinator" || p.DataAccess
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata stores the extracted client IP and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return "unknown"
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserID returns the authenticated user ID or "anonymous".
func UserID(ctx context.Context) string {
	if p, ok := GetPrincipal(ctx); ok && p.UserID != "" {
		return p.UserID
	}
	return "anonymous"
}

func WithFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, fingerprintKey{}, fp)
}

func Fingerprint(ctx context.Context) string {
	if v, ok := ctx.Value(fingerprintKey{}).(string); ok {
		return v
	}
	return ""
}
