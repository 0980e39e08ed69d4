package pipeline

import (
	"net/http"
	"time"

	"careshield/internal/audit"
	"careshield/pkg/requestcontext"
)

// AuditRequests emits a REQUEST event on entry and a RESPONSE event once the
// handler finishes. Emission goes through the async publisher, so neither
// event blocks the client's response.
func (p *Pipeline) AuditRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		p.emit(audit.Event{
			Type:      audit.EventRequest,
			Severity:  audit.SeverityLow,
			UserID:    requestcontext.UserID(ctx),
			IP:        requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Path:      r.URL.Path,
			Method:    r.Method,
		})

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		p.emit(audit.Event{
			Type:      audit.EventResponse,
			Severity:  audit.SeverityLow,
			UserID:    requestcontext.UserID(ctx),
			IP:        requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Path:      r.URL.Path,
			Method:    r.Method,
			Payload: map[string]any{
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
				"bytes":      rec.written,
			},
		})
	})
}

// emit stamps the event time and forwards it, counting by type.
func (p *Pipeline) emit(event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.metrics != nil {
		p.metrics.AuditEvents.WithLabelValues(string(event.Type)).Inc()
	}
	p.emitter.Emit(event)
}

// statusRecorder captures the status code and body size without buffering.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
	wrote   bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}
