// Package csrf implements single-use anti-forgery tokens with expiry and
// optional session binding, plus the validation middleware that enforces them
// on state-changing requests.
package csrf

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/secrets"
)

// Token is an issued anti-forgery token. A token transitions unused -> used
// exactly once; any second presentation fails validation.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	SessionID string
	UserID    string
	Used      bool
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSessionBinding enforces session binding on validation. Only safe when
// the deployment has a durable shared session store; otherwise tokens issued
// by one replica would false-positive on another.
func WithSessionBinding() StoreOption {
	return func(s *Store) {
		s.enforceSession = true
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// Store is an in-memory registry of issued tokens. All transitions happen
// under one mutex so the existence/expiry check and the mark-used write are
// a single atomic step; two racing validations can never both succeed.
type Store struct {
	mu             sync.Mutex
	tokens         map[string]*Token
	ttl            time.Duration
	enforceSession bool
	now            func() time.Time
}

// NewStore builds a token store with a 2 hour default TTL.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		tokens: make(map[string]*Token),
		ttl:    2 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tokenEntropy is the random-byte count behind each token value. 32 bytes
// matches the session id strength; tokens are single-use so there is no
// reason to go shorter.
const tokenEntropy = 32

// Issue generates a cryptographically random token bound to the issuing
// session and user when known.
func (s *Store) Issue(sessionID, userID string) (*Token, error) {
	value, err := secrets.GenerateN(tokenEntropy)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := &Token{
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		SessionID: sessionID,
		UserID:    userID,
	}

	s.mu.Lock()
	s.tokens[value] = token
	s.mu.Unlock()

	return token, nil
}

// Validate checks a presented token and consumes it on success. The
// check-and-mark happens under the store lock, closing the replay window
// before the handler proceeds.
func (s *Store) Validate(value, sessionID string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeCSRFTokenMissing, "CSRF token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok {
		return dErrors.New(dErrors.CodeCSRFTokenInvalid, "invalid or expired CSRF token")
	}
	if token.Used {
		return dErrors.New(dErrors.CodeCSRFTokenInvalid, "CSRF token already used")
	}
	if s.now().After(token.ExpiresAt) {
		delete(s.tokens, value)
		return dErrors.New(dErrors.CodeCSRFTokenInvalid, "invalid or expired CSRF token")
	}
	if s.enforceSession && token.SessionID != "" && token.SessionID != sessionID {
		return dErrors.New(dErrors.CodeCSRFTokenSessionMismatch, "CSRF token bound to a different session")
	}

	token.Used = true
	return nil
}

// Len reports the number of retained tokens, used and unused.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Sweep removes expired and consumed tokens, returning how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for value, token := range s.tokens {
		if token.Used || now.After(token.ExpiresAt) {
			delete(s.tokens, value)
			removed++
		}
	}
	return removed
}

// StartSweeping runs Sweep on an interval until the context is cancelled.
// Bounds the memory held by abandoned tokens.
func (s *Store) StartSweeping(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 && logger != nil {
				logger.Debug("csrf token sweep", "removed", removed, "retained", s.Len())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
