// Package queue defines the contract for click-event intake.
//
// The intake is a single-writer, single-reader bounded queue per
// round: the input collaborator appends clicks, the scoring engine
// drains them once per tick. Backpressure is "reject", never "block" -
// a full queue drops the click rather than stalling the input side.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 256
)

// Click is the payload type flowing through the queue.
type Click = model.ClickEvent

// Queue provides non-blocking enqueue and per-tick drain semantics.
type Queue interface {
	// Enqueue adds a click to the queue.
	// Returns false if the queue is full or closed and the click was
	// dropped.
	Enqueue(ctx context.Context, c Click) bool

	// Drain removes and returns every queued click, in arrival order.
	Drain(ctx context.Context) []Click

	// Len returns the current number of queued clicks.
	Len(ctx context.Context) int

	// Close shuts the queue; subsequent enqueues are rejected.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	clicks   chan Click
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory click queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.clicks = make(chan Click, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a click to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Click) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordClickRejected()
		return false
	}

	select {
	case q.clicks <- c:
		metrics.RecordClick()
		metrics.UpdateQueueSize(len(q.clicks))
		return true
	case <-ctx.Done():
		metrics.RecordClickRejected()
		return false
	default:
		// queue is full; backpressure means drop, not buffer
		metrics.RecordClickRejected()
		return false
	}
}

// Drain empties the queue and returns the clicks in arrival order.
func (q *InMemoryQueue) Drain(ctx context.Context) []Click {
	var out []Click
	for {
		select {
		case c := <-q.clicks:
			out = append(out, c)
		case <-ctx.Done():
			metrics.UpdateQueueSize(len(q.clicks))
			return out
		default:
			metrics.UpdateQueueSize(len(q.clicks))
			return out
		}
	}
}

// Len returns the current number of queued clicks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.clicks)
	metrics.UpdateQueueSize(size)
	return size
}

// Close shuts the queue. Queued clicks stay drainable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
