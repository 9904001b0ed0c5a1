// Package queue provides the in-memory hand-off buffer that decouples webhook
// acknowledgment from processing. Items are volatile: anything accepted but
// not yet processed is lost on process exit.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrClosed is returned when enqueueing to a closed queue.
var ErrClosed = errors.New("ingestion queue closed")

// DefaultCapacity bounds the number of buffered deliveries.
const DefaultCapacity = 100

// Item is one raw LINE webhook delivery awaiting verification and relay.
// Signature is the raw header value; verification happens at dequeue time.
type Item struct {
	ID        string
	Signature string
	Body      []byte
	Host      string
}

// Queue is a multi-producer, single-consumer buffer. Producers are request
// handlers; the single consumer is the worker loop. No external locking is
// required by callers.
type Queue struct {
	items  chan Item
	done   chan struct{}
	closed atomic.Bool
}

// New creates a queue with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		items: make(chan Item, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds an item for the worker. Blocks while the buffer is full;
// returns ErrClosed once the queue has been closed.
func (q *Queue) Enqueue(item Item) error {
	if q.closed.Load() {
		return ErrClosed
	}
	select {
	case q.items <- item:
		return nil
	case <-q.done:
		return ErrClosed
	}
}

// Dequeue blocks until an item is available, the queue closes, or ctx is
// cancelled. The second return value reports whether an item was received.
func (q *Queue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-q.done:
		return Item{}, false
	case <-ctx.Done():
		return Item{}, false
	}
}

// Len reports the number of buffered items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting new items. Items already buffered may still be
// dequeued or dropped at shutdown; both are acceptable for this queue.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}
