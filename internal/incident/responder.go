package incident

import (
	"context"
	"sync"
)

// SessionInvalidator destroys all live sessions for a user. The session store
// satisfies this.
type SessionInvalidator interface {
	InvalidateUser(userID string) int
}

// StoreResponder executes response actions against the owned security state:
// the block list, the flagged-user set, and the session store. All actions
// take effect before the method returns, so the next request sees them.
type StoreResponder struct {
	blocklist *BlockList
	sessions  SessionInvalidator

	mu      sync.RWMutex
	flagged map[string]struct{}
}

// NewStoreResponder wires a responder to its targets.
func NewStoreResponder(blocklist *BlockList, sessions SessionInvalidator) *StoreResponder {
	return &StoreResponder{
		blocklist: blocklist,
		sessions:  sessions,
		flagged:   make(map[string]struct{}),
	}
}

func (r *StoreResponder) BlockIP(_ context.Context, ip string) error {
	r.blocklist.Block(ip)
	return nil
}

func (r *StoreResponder) WatchIP(_ context.Context, ip string) error {
	r.blocklist.Watch(ip)
	return nil
}

// FlagUser marks a user for operator review.
func (r *StoreResponder) FlagUser(_ context.Context, userID string) error {
	if userID == "" || userID == "anonymous" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flagged[userID] = struct{}{}
	return nil
}

// RequireReauth destroys the user's sessions so the next request must
// authenticate again.
func (r *StoreResponder) RequireReauth(ctx context.Context, userID string) error {
	return r.InvalidateUserSessions(ctx, userID)
}

func (r *StoreResponder) InvalidateUserSessions(_ context.Context, userID string) error {
	if userID == "" || userID == "anonymous" {
		return nil
	}
	r.sessions.InvalidateUser(userID)
	return nil
}

// IsFlagged reports whether a user is marked for review.
func (r *StoreResponder) IsFlagged(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.flagged[userID]
	return ok
}

// FlaggedUsers returns the flagged user IDs.
func (r *StoreResponder) FlaggedUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.flagged))
	for id := range r.flagged {
		out = append(out, id)
	}
	return out
}
