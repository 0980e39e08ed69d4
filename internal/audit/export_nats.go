package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectEvents carries every security event for downstream compliance
	// consumers (SIEM export, retention archival).
	SubjectEvents = "careshield.audit.events"
	// SubjectAlerts carries CRITICAL-severity notifications for out-of-band
	// alerting (chat webhook bridges subscribe here).
	SubjectAlerts = "careshield.audit.alerts"
)

// NATSExporter publishes events to a NATS subject as JSON. It satisfies Store
// so the publisher fans out to it like any other sink; a broker outage
// surfaces as a logged persistence failure, never a request failure.
type NATSExporter struct {
	conn *nats.Conn
}

// NewNATSExporter connects to the broker at url.
func NewNATSExporter(url string) (*NATSExporter, error) {
	conn, err := nats.Connect(url,
		nats.Name("careshield-audit"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect audit exporter: %w", err)
	}
	return &NATSExporter{conn: conn}, nil
}

// Append publishes one event to the events subject.
func (e *NATSExporter) Append(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := e.conn.Publish(SubjectEvents, data); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Alert publishes an out-of-band notification for a critical incident.
func (e *NATSExporter) Alert(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := e.conn.Publish(SubjectAlerts, data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (e *NATSExporter) Close() {
	if e.conn != nil {
		_ = e.conn.Drain()
	}
}
