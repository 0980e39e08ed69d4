package incident

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockListBlockAndClear(t *testing.T) {
	b := NewBlockList()

	b.Block("203.0.113.9")
	assert.True(t, b.IsBlocked("203.0.113.9"))
	assert.False(t, b.IsBlocked("203.0.113.10"))

	b.Unblock("203.0.113.9")
	assert.False(t, b.IsBlocked("203.0.113.9"))

	b.Block("10.0.0.1")
	b.Block("10.0.0.2")
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, b.Blocked())
	assert.Equal(t, 2, b.ClearBlocked())
	assert.Empty(t, b.Blocked())
}

func TestBlockListWatchIsSoft(t *testing.T) {
	b := NewBlockList()
	b.Watch("203.0.113.9")

	assert.True(t, b.IsWatched("203.0.113.9"))
	assert.False(t, b.IsBlocked("203.0.113.9"))
	assert.Equal(t, []string{"203.0.113.9"}, b.Watched())
}

func TestBlockListIgnoresEmptyIP(t *testing.T) {
	b := NewBlockList()
	b.Block("")
	b.Watch("")
	assert.Empty(t, b.Blocked())
	assert.Empty(t, b.Watched())
}

func TestBlockListConcurrentAccess(t *testing.T) {
	b := NewBlockList()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Block("203.0.113.9")
			b.IsBlocked("203.0.113.9")
			b.Watch("203.0.113.10")
			b.Blocked()
		}()
	}
	wg.Wait()

	assert.True(t, b.IsBlocked("203.0.113.9"))
}

func TestStoreResponderSkipsAnonymous(t *testing.T) {
	sessions := &fakeSessions{}
	r := NewStoreResponder(NewBlockList(), sessions)

	assert.NoError(t, r.FlagUser(context.Background(), "anonymous"))
	assert.NoError(t, r.InvalidateUserSessions(context.Background(), ""))
	assert.False(t, r.IsFlagged("anonymous"))
	assert.Empty(t, sessions.invalidated)
}

func TestStoreResponderRequireReauthInvalidatesSessions(t *testing.T) {
	sessions := &fakeSessions{}
	r := NewStoreResponder(NewBlockList(), sessions)

	assert.NoError(t, r.RequireReauth(context.Background(), "user-7"))
	assert.Equal(t, []string{"user-7"}, sessions.invalidated)

	assert.NoError(t, r.FlagUser(context.Background(), "user-7"))
	assert.True(t, r.IsFlagged("user-7"))
	assert.Equal(t, []string{"user-7"}, r.FlaggedUsers())
}
