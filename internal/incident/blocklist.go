package incident

import (
	"sort"
	"sync"
	"time"
)

// BlockList owns the blocked-IP set and the soft watchlist. It is explicit
// state held by the pipeline, and a block is visible to the very next request
// after Block returns: the pipeline's gate reads this map before anything
// else runs.
type BlockList struct {
	mu      sync.RWMutex
	blocked map[string]time.Time
	watched map[string]time.Time
	now     func() time.Time
}

// NewBlockList creates an empty block list.
func NewBlockList() *BlockList {
	return &BlockList{
		blocked: make(map[string]time.Time),
		watched: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Block adds an IP to the hard block set. Blocks hold until explicitly cleared.
func (b *BlockList) Block(ip string) {
	if ip == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blocked[ip]; !ok {
		b.blocked[ip] = b.now()
	}
}

// IsBlocked reports whether an IP is hard-blocked.
func (b *BlockList) IsBlocked(ip string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blocked[ip]
	return ok
}

// Unblock removes one IP from the block set.
func (b *BlockList) Unblock(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, ip)
}

// ClearBlocked empties the block set, returning how many entries were dropped.
func (b *BlockList) ClearBlocked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.blocked)
	b.blocked = make(map[string]time.Time)
	return n
}

// Watch adds an IP to the soft watchlist. Watched IPs are never rejected;
// the list exists for operator review.
func (b *BlockList) Watch(ip string) {
	if ip == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watched[ip]; !ok {
		b.watched[ip] = b.now()
	}
}

// IsWatched reports whether an IP is on the watchlist.
func (b *BlockList) IsWatched(ip string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.watched[ip]
	return ok
}

// Blocked returns the blocked IPs in stable order.
func (b *BlockList) Blocked() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.blocked)
}

// Watched returns the watchlisted IPs in stable order.
func (b *BlockList) Watched() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.watched)
}

func sortedKeys(m map[string]time.Time) []string {
	out := make([]string, 0, len(m))
	for ip := range m {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}
