// Package incident turns the audit event stream into classified incidents
// with automated, immediately-visible response actions.
package incident

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"careshield/internal/audit"
)

// EventSource yields recent events for detection queries. The in-memory audit
// store satisfies this.
type EventSource interface {
	Since(cutoff time.Time) []audit.Event
}

// Responder executes the automated response actions. Every action is
// best-effort: a failed action is logged and the remaining actions still run.
type Responder interface {
	BlockIP(ctx context.Context, ip string) error
	WatchIP(ctx context.Context, ip string) error
	FlagUser(ctx context.Context, userID string) error
	RequireReauth(ctx context.Context, userID string) error
	InvalidateUserSessions(ctx context.Context, userID string) error
}

// Alerter carries CRITICAL incidents out of band.
type Alerter interface {
	Alert(payload any) error
}

// Sink persists incidents for compliance retention. The sqlite audit store
// satisfies this.
type Sink interface {
	SaveIncident(ctx context.Context, id string, timestamp time.Time, incidentType, severity, userID, ip, details string, resolved bool, responseActions []string) error
}

// Engine runs the detection rules and owns the incident records. It holds
// incidents in memory for the admin surface and mirrors them to the sink.
type Engine struct {
	source    EventSource
	responder Responder

	sink    Sink
	alerter Alerter
	logger  *slog.Logger

	window    time.Duration
	threshold int
	now       func() time.Time

	mu        sync.Mutex
	incidents map[string]*Incident
	open      map[string]string // dedup key -> incident ID while unresolved
}

// Option configures the engine.
type Option func(*Engine)

// WithSink mirrors incidents to a durable store.
func WithSink(sink Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithAlerter routes CRITICAL incidents out of band.
func WithAlerter(alerter Alerter) Option {
	return func(e *Engine) { e.alerter = alerter }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBruteForceThreshold overrides the failed-login count that raises an incident.
func WithBruteForceThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithDetectionWindow overrides how far back each scan looks.
func WithDetectionWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithEngineClock injects a time source for tests.
func WithEngineClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over the event source and responder. Defaults:
// 1 hour detection window, 10 failed logins per IP.
func NewEngine(source EventSource, responder Responder, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		responder: responder,
		logger:    slog.Default(),
		window:    time.Hour,
		threshold: 10,
		now:       time.Now,
		incidents: make(map[string]*Incident),
		open:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scan runs all detection rules over the last window of events and returns
// the incidents raised by this pass. Conditions already covered by an open
// incident raise nothing.
func (e *Engine) Scan(ctx context.Context) []*Incident {
	events := e.source.Since(e.now().Add(-e.window))

	var raised []*Incident
	raised = append(raised, e.detectBruteForce(ctx, events)...)
	raised = append(raised, e.detectFromEvents(ctx, events)...)
	return raised
}

// detectBruteForce groups failed logins by source IP and raises one incident
// per IP crossing the threshold.
func (e *Engine) detectBruteForce(ctx context.Context, events []audit.Event) []*Incident {
	failures := make(map[string]int)
	for _, ev := range events {
		if ev.Type == audit.EventLoginFailed && ev.IP != "" {
			failures[ev.IP]++
		}
	}

	var raised []*Incident
	for ip, count := range failures {
		if count < e.threshold {
			continue
		}
		if inc := e.raise(ctx, TypeBruteForce, "", ip,
			fmt.Sprintf("%d failed logins within %s", count, e.window)); inc != nil {
			raised = append(raised, inc)
		}
	}
	return raised
}

// detectFromEvents raises incidents for single events that are themselves
// conclusive: injection patterns, hijack attempts, privilege escalation, and
// rate-limit breaches.
func (e *Engine) detectFromEvents(ctx context.Context, events []audit.Event) []*Incident {
	var raised []*Incident
	for _, ev := range events {
		var t Type
		switch ev.Type {
		case audit.EventSuspiciousInput:
			t = TypeInjection
		case audit.EventSessionHijackAttempt:
			t = TypeSessionHijack
		case audit.EventPrivilegeEscalation:
			t = TypeSuspiciousDataAccess
		case audit.EventRateLimitExceeded:
			t = TypeRateLimitAbuse
		default:
			continue
		}
		details := fmt.Sprintf("%s on %s %s", ev.Type, ev.Method, ev.Path)
		if inc := e.raise(ctx, t, ev.UserID, ev.IP, details); inc != nil {
			raised = append(raised, inc)
		}
	}
	return raised
}

// raise creates an incident unless an unresolved one already covers the same
// type and IP, then executes the response actions and persists the record.
func (e *Engine) raise(ctx context.Context, t Type, userID, ip, details string) *Incident {
	key := string(t) + "|" + ip

	e.mu.Lock()
	if _, exists := e.open[key]; exists {
		e.mu.Unlock()
		return nil
	}
	inc := &Incident{
		ID:        uuid.New().String(),
		Timestamp: e.now(),
		Type:      t,
		Severity:  severityFor(t),
		UserID:    userID,
		IP:        ip,
		Details:   details,
	}
	e.incidents[inc.ID] = inc
	e.open[key] = inc.ID
	e.mu.Unlock()

	e.logger.Warn("security incident raised",
		"incidentId", inc.ID,
		"type", string(t),
		"severity", string(inc.Severity),
		"ip", ip,
		"userId", userID,
	)

	e.respond(ctx, inc)
	e.persist(ctx, inc)
	e.alert(inc)
	return inc
}

// respond executes the fixed action table for the incident type. Actions are
// applied synchronously so they bind before the attacker's next request.
func (e *Engine) respond(ctx context.Context, inc *Incident) {
	type action struct {
		name string
		run  func() error
	}

	var actions []action
	switch inc.Type {
	case TypeBruteForce:
		actions = []action{
			{"BLOCK_IP", func() error { return e.responder.BlockIP(ctx, inc.IP) }},
		}
	case TypeInjection:
		actions = []action{
			{"BLOCK_IP", func() error { return e.responder.BlockIP(ctx, inc.IP) }},
			{"FLAG_USER", func() error { return e.responder.FlagUser(ctx, inc.UserID) }},
		}
	case TypeSuspiciousDataAccess:
		actions = []action{
			{"FLAG_USER", func() error { return e.responder.FlagUser(ctx, inc.UserID) }},
			{"REQUIRE_REAUTH", func() error { return e.responder.RequireReauth(ctx, inc.UserID) }},
		}
	case TypeRateLimitAbuse:
		actions = []action{
			{"WATCH_IP", func() error { return e.responder.WatchIP(ctx, inc.IP) }},
		}
	case TypeSessionHijack:
		actions = []action{
			{"BLOCK_IP", func() error { return e.responder.BlockIP(ctx, inc.IP) }},
			{"INVALIDATE_SESSIONS", func() error { return e.responder.InvalidateUserSessions(ctx, inc.UserID) }},
		}
	}

	for _, a := range actions {
		if err := a.run(); err != nil {
			e.logger.Error("incident response action failed",
				"incidentId", inc.ID, "action", a.name, "error", err)
			continue
		}
		e.mu.Lock()
		inc.ResponseActions = append(inc.ResponseActions, a.name)
		e.mu.Unlock()
	}
}

func (e *Engine) persist(ctx context.Context, inc *Incident) {
	if e.sink == nil {
		return
	}
	e.mu.Lock()
	actions := append([]string(nil), inc.ResponseActions...)
	resolved := inc.Resolved
	e.mu.Unlock()

	err := e.sink.SaveIncident(ctx, inc.ID, inc.Timestamp, string(inc.Type),
		string(inc.Severity), inc.UserID, inc.IP, inc.Details, resolved, actions)
	if err != nil {
		e.logger.Error("incident persistence failed", "incidentId", inc.ID, "error", err)
	}
}

func (e *Engine) alert(inc *Incident) {
	if inc.Severity != audit.SeverityCritical {
		return
	}
	if e.alerter == nil {
		e.logger.Error("critical incident (no alerter configured)",
			"incidentId", inc.ID, "type", string(inc.Type), "ip", inc.IP)
		return
	}
	if err := e.alerter.Alert(inc); err != nil {
		e.logger.Error("incident alert failed", "incidentId", inc.ID, "error", err)
	}
}

// Resolve marks an incident resolved, allowing a future recurrence of the
// same condition to raise a fresh incident.
func (e *Engine) Resolve(ctx context.Context, id string) error {
	e.mu.Lock()
	inc, ok := e.incidents[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("incident %s not found", id)
	}
	inc.Resolved = true
	delete(e.open, string(inc.Type)+"|"+inc.IP)
	e.mu.Unlock()

	e.persist(ctx, inc)
	return nil
}

// Recent returns up to limit incidents, newest first.
func (e *Engine) Recent(limit int) []Incident {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Incident, 0, len(e.incidents))
	for _, inc := range e.incidents {
		out = append(out, *inc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns one incident by ID.
func (e *Engine) Get(id string) (Incident, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inc, ok := e.incidents[id]
	if !ok {
		return Incident{}, false
	}
	return *inc, true
}

// StartScanning runs Scan on an interval until the context is cancelled.
func (e *Engine) StartScanning(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if raised := e.Scan(ctx); len(raised) > 0 {
				e.logger.Info("incident scan complete", "raised", len(raised))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
