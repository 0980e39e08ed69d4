package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"careshield/pkg/requestcontext"
)

// MaxXFFHeaderLength is the maximum allowed length for X-Forwarded-For header
// to prevent header injection attacks.
const MaxXFFHeaderLength = 500

// MetadataConfig holds configuration for the client metadata middleware.
type MetadataConfig struct {
	// TrustedProxies is a list of IP prefixes (CIDR notation) that are trusted
	// to set X-Forwarded-For headers. If empty, XFF is never trusted.
	TrustedProxies []netip.Prefix
}

// ParseTrustedProxies converts CIDR strings into prefixes, skipping invalid entries.
func ParseTrustedProxies(cidrs []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(c); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context. Every downstream pipeline stage (fingerprint,
// rate limiting, audit) reads these values from context instead of the request.
func ClientMetadata(cfg *MetadataConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &MetadataConfig{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractClientIP(cfg, r)
			userAgent := r.Header.Get("User-Agent")

			ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractClientIP extracts the client IP with trusted proxy validation.
func extractClientIP(cfg *MetadataConfig, r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := r.Header.Get("X-Real-IP"); xri != "" && isTrustedProxy(cfg, remoteIP) {
			if len(xri) <= MaxXFFHeaderLength {
				return strings.TrimSpace(xri)
			}
		}
		return remoteIP
	}

	// XFF header present - only trust if the request came from a trusted proxy.
	if !isTrustedProxy(cfg, remoteIP) {
		return remoteIP
	}

	if len(xff) > MaxXFFHeaderLength {
		return remoteIP
	}

	var clientIP string
	if before, _, ok := strings.Cut(xff, ","); ok {
		clientIP = strings.TrimSpace(before)
	} else {
		clientIP = strings.TrimSpace(xff)
	}

	if _, err := netip.ParseAddr(clientIP); err != nil {
		return remoteIP
	}

	return clientIP
}

func isTrustedProxy(cfg *MetadataConfig, ip string) bool {
	if len(cfg.TrustedProxies) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, prefix := range cfg.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}

	// Handle IPv6 with brackets: [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]:"); idx != -1 {
			return remoteAddr[1:idx]
		}
		return strings.Trim(strings.Split(remoteAddr, "]:")[0], "[]")
	}

	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}

	return remoteAddr
}
