package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore holds Append until released, to fill the publisher buffer.
type blockingStore struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []Event
}

func (b *blockingStore) Append(_ context.Context, event Event) error {
	<-b.release
	b.mu.Lock()
	b.seen = append(b.seen, event)
	b.mu.Unlock()
	return nil
}

func (b *blockingStore) events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event{}, b.seen...)
}

func TestPublisherDeliversEvents(t *testing.T) {
	store := NewInMemoryStore(100)
	p := NewPublisher([]Store{store})

	p.Emit(Event{Type: EventRequest, Severity: SeverityLow, IP: "203.0.113.1"})
	p.Emit(Event{Type: EventLoginFailed, Severity: SeverityMedium, IP: "203.0.113.1"})
	p.Close()

	assert.Equal(t, 2, store.Len())
}

func TestPublisherStampsTimestamp(t *testing.T) {
	store := NewInMemoryStore(10)
	p := NewPublisher([]Store{store})

	p.Emit(Event{Type: EventRequest, IP: "203.0.113.1"})
	p.Close()

	events := store.Since(time.Time{})
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherDropsOldestUnderPressure(t *testing.T) {
	blocking := &blockingStore{release: make(chan struct{})}
	p := NewPublisher([]Store{blocking}, WithBuffer(2))

	// The worker takes one event off the channel and blocks inside Append,
	// leaving room for exactly two queued events.
	p.Emit(Event{Type: EventRequest, IP: "1"})
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.events) == 0
	}, time.Second, time.Millisecond)

	p.Emit(Event{Type: EventRequest, IP: "2"})
	p.Emit(Event{Type: EventRequest, IP: "3"})
	// Buffer is now full; this evicts "2".
	p.Emit(Event{Type: EventRequest, IP: "4"})

	assert.Equal(t, uint64(1), p.Dropped())

	close(blocking.release)
	p.Close()

	ips := make([]string, 0)
	for _, e := range blocking.events() {
		ips = append(ips, e.IP)
	}
	assert.Equal(t, []string{"1", "3", "4"}, ips)
}

func TestPublisherEmitNeverBlocks(t *testing.T) {
	blocking := &blockingStore{release: make(chan struct{})}
	p := NewPublisher([]Store{blocking}, WithBuffer(1))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Emit(Event{Type: EventRequest, IP: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked under full buffer")
	}

	close(blocking.release)
	p.Close()
}

func TestPublisherEmitAfterCloseIsNoop(t *testing.T) {
	store := NewInMemoryStore(10)
	p := NewPublisher([]Store{store})
	p.Close()

	assert.NotPanics(t, func() {
		p.Emit(Event{Type: EventRequest, IP: "1"})
	})
	assert.Equal(t, 0, store.Len())
}
