package pipeline

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"careshield/internal/audit"
	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

// EncryptRequests seals protected fields in inbound JSON bodies before the
// handler sees them, so plaintext personal data never reaches storage.
// Non-JSON and unparseable bodies pass through untouched; the handler owns
// rejecting malformed input.
func (p *Pipeline) EncryptRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasJSONBody(r) || p.isFieldExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable request body"))
			return
		}

		var value any
		if err := json.Unmarshal(body, &value); err != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
			return
		}

		sealed, err := p.protector.EncryptProtectedFields(value)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "field protection failed"))
			return
		}

		encoded, err := json.Marshal(sealed)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "field protection failed"))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(encoded))
		r.ContentLength = int64(len(encoded))
		next.ServeHTTP(w, r)
	})
}

// ProtectResponses post-processes outbound JSON: callers with elevated data
// access get protected fields decrypted in place, everyone else gets masked
// values. The response is buffered, transformed, then written; a structurally
// broken envelope is the only hard failure.
func (p *Pipeline) ProtectResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.isFieldExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		buf := newBufferedResponse(w)
		next.ServeHTTP(buf, r)

		if !buf.isJSON() || buf.status >= http.StatusMultipleChoices || buf.body.Len() == 0 {
			buf.flush(nil)
			return
		}

		var value any
		if err := json.Unmarshal(buf.body.Bytes(), &value); err != nil {
			buf.flush(nil)
			return
		}

		ctx := r.Context()
		principal, _ := requestcontext.GetPrincipal(ctx)
		elevated := principal.Elevated()

		var (
			out  any
			err  error
			mode string
		)
		if elevated {
			out, err = p.protector.DecryptProtectedFields(value)
			mode = "decrypt"
		} else {
			out, err = p.protector.MaskProtectedFields(value)
			mode = "mask"
		}

		if err != nil {
			p.emit(audit.Event{
				Type:      audit.EventDecryptionFailure,
				Severity:  audit.SeverityHigh,
				UserID:    requestcontext.UserID(ctx),
				IP:        requestcontext.ClientIP(ctx),
				UserAgent: requestcontext.UserAgent(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Path:      r.URL.Path,
				Method:    r.Method,
			})
			buf.discard()
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeDecryptionError, "unable to process response data"))
			return
		}

		if elevated {
			// Clear reads of protected data are themselves audit-worthy.
			p.emit(audit.Event{
				Type:      audit.EventElevatedDataAccess,
				Severity:  audit.SeverityLow,
				UserID:    requestcontext.UserID(ctx),
				IP:        requestcontext.ClientIP(ctx),
				RequestID: requestcontext.RequestID(ctx),
				Path:      r.URL.Path,
				Method:    r.Method,
			})
		}
		if p.metrics != nil {
			p.metrics.ProtectedResponses.WithLabelValues(mode).Inc()
		}

		encoded, err := json.Marshal(out)
		if err != nil {
			buf.discard()
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "unable to encode response"))
			return
		}
		buf.flush(encoded)
	})
}

// isFieldExempt reports whether field protection is switched off for this
// path. Exemption is by prefix so a whole route group can be excluded.
func (p *Pipeline) isFieldExempt(path string) bool {
	for _, prefix := range p.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func hasJSONBody(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
		return false
	}
	if r.Body == nil || r.ContentLength == 0 {
		return false
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// bufferedResponse holds the handler's output until the protection stage has
// decided what to send.
type bufferedResponse struct {
	dest    http.ResponseWriter
	header  http.Header
	status  int
	body    bytes.Buffer
	dropped bool
}

func newBufferedResponse(dest http.ResponseWriter) *bufferedResponse {
	return &bufferedResponse{
		dest:   dest,
		header: make(http.Header),
		status: http.StatusOK,
	}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedResponse) Write(data []byte) (int, error) {
	return b.body.Write(data)
}

func (b *bufferedResponse) isJSON() bool {
	return strings.HasPrefix(b.header.Get("Content-Type"), "application/json")
}

// flush writes the buffered response, substituting body when non-nil.
func (b *bufferedResponse) flush(body []byte) {
	if b.dropped {
		return
	}
	if body == nil {
		body = b.body.Bytes()
	}

	dest := b.dest.Header()
	for key, values := range b.header {
		dest[key] = values
	}
	if len(body) > 0 {
		dest.Set("Content-Length", strconv.Itoa(len(body)))
	}
	b.dest.WriteHeader(b.status)
	_, _ = b.dest.Write(body)
}

// discard abandons the buffered response so an error envelope can replace it.
func (b *bufferedResponse) discard() {
	b.dropped = true
}
