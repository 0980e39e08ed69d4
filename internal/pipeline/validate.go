package pipeline

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"careshield/internal/audit"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

// inputPattern pairs a pattern class with its compiled expression. The
// expressions are deliberately coarse: they catch tooling, not determined
// humans, and the incident engine handles what slips through.
type inputPattern struct {
	name string
	re   *regexp.Regexp
}

var suspiciousPatterns = []inputPattern{
	{"sql_injection", regexp.MustCompile(`(?i)(\bunion\b[\s\S]{0,40}\bselect\b|\bselect\b[\s\S]{0,60}\bfrom\b|\bdrop\s+table\b|\binsert\s+into\b|\bdelete\s+from\b|'\s*(or|and)\s+'?\d+'?\s*=\s*'?\d+|--\s|;\s*--)`)},
	{"script_injection", regexp.MustCompile(`(?i)(<\s*script\b|javascript\s*:|\bon(load|error|click|mouseover|focus)\s*=|<\s*iframe\b|\beval\s*\()`)},
	{"path_traversal", regexp.MustCompile(`(\.\./|\.\.\\|%2e%2e%2f|%2e%2e\\)`)},
}

// maxScreenedBody bounds how much of the body input screening inspects. The
// body limit middleware caps requests well below this anyway.
const maxScreenedBody = 1 << 20

// ScreenInput rejects requests whose query string or body matches a known
// injection pattern. The rejection event is emitted synchronously so the
// record exists before the attacker sees the response.
func (p *Pipeline) ScreenInput(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pattern, sample, ok := p.screen(r); ok {
			if p.metrics != nil {
				p.metrics.SuspiciousInput.WithLabelValues(pattern).Inc()
			}
			ctx := r.Context()
			p.emit(audit.Event{
				Type:      audit.EventSuspiciousInput,
				Severity:  audit.SeverityHigh,
				UserID:    requestcontext.UserID(ctx),
				IP:        requestcontext.ClientIP(ctx),
				UserAgent: requestcontext.UserAgent(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Path:      r.URL.Path,
				Method:    r.Method,
				Payload: map[string]any{
					"pattern": pattern,
					"sample":  sample,
				},
			})
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "request rejected"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// screen inspects the decoded query string and the raw body, restoring the
// body for downstream stages. Returns the matched pattern class and a short
// sample for the audit record.
func (p *Pipeline) screen(r *http.Request) (pattern, sample string, matched bool) {
	if query := decodedQuery(r); query != "" {
		if name, s, ok := matchPatterns(query); ok {
			return name, s, true
		}
	}

	if r.Body == nil || r.ContentLength == 0 {
		return "", "", false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScreenedBody))
	if err != nil {
		return "", "", false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	return matchPatterns(string(body))
}

// decodedQuery returns the query string with percent-encoding removed, so
// encoded traversal sequences are inspected in both forms.
func decodedQuery(r *http.Request) string {
	raw := r.URL.RawQuery
	if raw == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
		return raw + "\n" + decoded
	}
	return raw
}

func matchPatterns(input string) (string, string, bool) {
	for _, p := range suspiciousPatterns {
		if loc := p.re.FindStringIndex(input); loc != nil {
			return p.name, clip(input[loc[0]:loc[1]], 80), true
		}
	}
	return "", "", false
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
