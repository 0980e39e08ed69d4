package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store persists events. Persistence failures never propagate to the request
// path; the publisher logs and moves on.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithBuffer sets the channel capacity for the background writer.
func WithBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = size
		}
	}
}

// WithLogger sets a logger for async error reporting.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// Publisher fans events out to one or more stores from a background
// goroutine. Emit never blocks the request path: when the buffer is full the
// oldest queued event is dropped to make room, and a drop counter tracks the
// loss for observability.
type Publisher struct {
	stores []Store
	events chan Event
	buffer int
	logger *slog.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// NewPublisher starts the background writer immediately.
func NewPublisher(stores []Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		stores: stores,
		buffer: 1024,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = make(chan Event, p.buffer)
	p.wg.Add(1)
	go p.processEvents()
	return p
}

// Emit queues an event without blocking. Drop-oldest under pressure: the
// newest event usually describes the ongoing attack and must survive.
func (p *Publisher) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	for {
		select {
		case p.events <- event:
			return
		default:
		}
		// Buffer full: evict the oldest queued event and retry.
		select {
		case <-p.events:
			p.dropped++
			p.logger.Warn("audit buffer full, oldest event dropped",
				"dropped_total", p.dropped,
			)
		default:
		}
	}
}

// Dropped reports how many events have been evicted under pressure.
func (p *Publisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// processEvents persists events from the channel until Close drains it.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		for _, store := range p.stores {
			if err := store.Append(context.Background(), event); err != nil {
				p.logger.Error("failed to persist audit event",
					"error", err,
					"event_type", string(event.Type),
					"request_id", event.RequestID,
				)
			}
		}
	}
}

// Close shuts down the publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.events)
	p.wg.Wait()
}
