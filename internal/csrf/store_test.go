package csrf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "careshield/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewStore()

	token, err := s.Issue("sess-1", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.True(t, token.ExpiresAt.After(token.IssuedAt))

	require.NoError(t, s.Validate(token.Value, "sess-1"))
}

func TestOneTimeUse(t *testing.T) {
	s := NewStore()

	token, err := s.Issue("", "")
	require.NoError(t, err)

	require.NoError(t, s.Validate(token.Value, ""))

	err = s.Validate(token.Value, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCSRFTokenInvalid))
}

func TestMissingToken(t *testing.T) {
	s := NewStore()
	err := s.Validate("", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCSRFTokenMissing))
}

func TestUnknownToken(t *testing.T) {
	s := NewStore()
	err := s.Validate("never-issued", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCSRFTokenInvalid))
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	clock := now
	s := NewStore(WithTTL(time.Hour), WithClock(func() time.Time { return clock }))

	token, err := s.Issue("", "")
	require.NoError(t, err)

	clock = now.Add(time.Hour + time.Second)

	err = s.Validate(token.Value, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCSRFTokenInvalid))
}

func TestSessionBinding(t *testing.T) {
	t.Run("enforced with shared session store", func(t *testing.T) {
		s := NewStore(WithSessionBinding())

		token, err := s.Issue("sess-a", "")
		require.NoError(t, err)

		err = s.Validate(token.Value, "sess-b")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCSRFTokenSessionMismatch))

		// The mismatch did not consume the token.
		require.NoError(t, s.Validate(token.Value, "sess-a"))
	})

	t.Run("advisory without shared session store", func(t *testing.T) {
		s := NewStore()

		token, err := s.Issue("sess-a", "")
		require.NoError(t, err)

		require.NoError(t, s.Validate(token.Value, "sess-b"))
	})

	t.Run("unbound tokens validate from any session", func(t *testing.T) {
		s := NewStore(WithSessionBinding())

		token, err := s.Issue("", "")
		require.NoError(t, err)

		require.NoError(t, s.Validate(token.Value, "sess-b"))
	})
}

func TestConcurrentValidationSingleWinner(t *testing.T) {
	s := NewStore()

	token, err := s.Issue("", "")
	require.NoError(t, err)

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Validate(token.Value, "") == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one racing validation may succeed")
}

func TestSweep(t *testing.T) {
	now := time.Now()
	clock := now
	s := NewStore(WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	expired, err := s.Issue("", "")
	require.NoError(t, err)
	used, err := s.Issue("", "")
	require.NoError(t, err)
	live, err := s.Issue("", "")
	require.NoError(t, err)

	require.NoError(t, s.Validate(used.Value, ""))
	clock = now.Add(2 * time.Minute)
	_, err = s.Issue("", "") // still-live token issued after the clock moved
	require.NoError(t, err)

	removed := s.Sweep()
	assert.Equal(t, 3, removed) // expired, used, and the first live token all aged out
	assert.Equal(t, 1, s.Len())

	_ = expired
	_ = live
}
