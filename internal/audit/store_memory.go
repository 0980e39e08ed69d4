package audit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore retains a bounded window of recent events for the incident
// detector and risk scorer to query. It is not the compliance record; the
// durable store holds that.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
	max    int
}

// NewInMemoryStore bounds retention at max events (oldest evicted first).
func NewInMemoryStore(max int) *InMemoryStore {
	if max <= 0 {
		max = 10000
	}
	return &InMemoryStore{max: max}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.max {
		s.events = s.events[len(s.events)-s.max:]
	}
	return nil
}

// Since returns all retained events at or after the cutoff.
func (s *InMemoryStore) Since(cutoff time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range s.events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// SinceByType returns retained events of one type at or after the cutoff.
func (s *InMemoryStore) SinceByType(cutoff time.Time, eventType EventType) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range s.events {
		if e.Type == eventType && !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// SinceByUser returns retained events for one user at or after the cutoff.
func (s *InMemoryStore) SinceByUser(cutoff time.Time, userID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range s.events {
		if e.UserID == userID && !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many events are currently retained.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
