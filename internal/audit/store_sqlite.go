package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the durable compliance record for security events and
// incidents. Events are append-only and never deleted; incidents are updated
// only to append response actions or mark resolution.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the audit database and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS security_events (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		user_id TEXT,
		ip TEXT NOT NULL,
		user_agent TEXT,
		request_id TEXT,
		path TEXT,
		method TEXT,
		payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON security_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type_ip ON security_events(event_type, ip);

	CREATE TABLE IF NOT EXISTS security_incidents (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		incident_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		user_id TEXT,
		ip TEXT NOT NULL,
		details TEXT,
		resolved INTEGER NOT NULL DEFAULT 0,
		response_actions TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON security_incidents(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append inserts a security event into the append-only log.
func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	var payload []byte
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			payload = nil
		}
	}

	query := `
		INSERT INTO security_events (
			id, timestamp, event_type, severity, user_id,
			ip, user_agent, request_id, path, method, payload
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		event.Timestamp,
		string(event.Type),
		string(event.Severity),
		nullable(event.UserID),
		event.IP,
		nullable(event.UserAgent),
		nullable(event.RequestID),
		nullable(event.Path),
		nullable(event.Method),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// SaveIncident inserts or updates an incident record.
func (s *SQLiteStore) SaveIncident(ctx context.Context, id string, timestamp time.Time, incidentType, severity, userID, ip, details string, resolved bool, responseActions []string) error {
	actions, err := json.Marshal(responseActions)
	if err != nil {
		actions = []byte("[]")
	}

	query := `
		INSERT INTO security_incidents (
			id, timestamp, incident_type, severity, user_id, ip, details, resolved, response_actions
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resolved = excluded.resolved,
			response_actions = excluded.response_actions
	`
	_, err = s.db.ExecContext(ctx, query,
		id, timestamp, incidentType, severity, nullable(userID), ip, details, boolToInt(resolved), string(actions),
	)
	if err != nil {
		return fmt.Errorf("save security incident: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first, for compliance review.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT timestamp, event_type, severity, user_id, ip, user_agent, request_id, path, method, payload
		FROM security_events
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event                                      Event
			userID, userAgent, requestID, path, method sql.NullString
			payload                                    []byte
		)
		if err := rows.Scan(
			&event.Timestamp, &event.Type, &event.Severity,
			&userID, &event.IP, &userAgent, &requestID, &path, &method, &payload,
		); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		event.UserID = userID.String
		event.UserAgent = userAgent.String
		event.RequestID = requestID.String
		event.Path = path.String
		event.Method = method.String
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &event.Payload)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountEventsByTypeAndIP counts matching events since the cutoff, for
// detection queries that must survive process restarts.
func (s *SQLiteStore) CountEventsByTypeAndIP(ctx context.Context, eventType EventType, ip string, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM security_events
		WHERE event_type = ? AND ip = ? AND timestamp >= ?
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, string(eventType), ip, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("count security events: %w", err)
	}
	return count, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
