package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"careshield/pkg/secrets"
)

// Session is one established login. Fingerprint is empty until the first
// guarded request stores it.
type Session struct {
	ID          string
	UserID      string
	Fingerprint string
	CreatedAt   time.Time
	LastSeen    time.Time
}

// StoreOption configures the session store.
type StoreOption func(*Store)

// WithTimeout overrides the inactivity timeout.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds sessions in memory. It is owned by the pipeline, never a
// process global, so tests can run isolated instances.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewStore builds a session store with a 30 minute inactivity timeout.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		timeout:  30 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// idEntropy is the random-byte count behind a session id. Session ids are
// long-lived bearer credentials, so they carry the full default strength.
const idEntropy = secrets.DefaultSecretLength

// Create establishes a session for a user and returns it.
func (s *Store) Create(userID string) (*Session, error) {
	id, err := secrets.GenerateN(idEntropy)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		LastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns a copy of the session, or false when unknown.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Touch checks the inactivity window and, when still live, updates LastSeen.
// Returns false when the session has expired (and destroys it).
func (s *Store) Touch(id string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	if now.Sub(sess.LastSeen) > s.timeout {
		delete(s.sessions, id)
		return false
	}
	sess.LastSeen = now
	return true
}

// BindFingerprint stores or overwrites the session's fingerprint.
func (s *Store) BindFingerprint(id, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Fingerprint = fingerprint
	}
}

// Destroy removes one session.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// InvalidateUser destroys every session belonging to a user. Used by incident
// response; the effect is visible to the next request immediately.
func (s *Store) InvalidateUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	destroyed := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			destroyed++
		}
	}
	return destroyed
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle beyond the timeout, returning how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.timeout {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeping runs Sweep on an interval until the context is cancelled.
func (s *Store) StartSweeping(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 && logger != nil {
				logger.Debug("session sweep", "removed", removed, "retained", s.Len())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
