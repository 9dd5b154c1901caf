package feature

import (
	"context"
	"sync"
)

// queue is a thread-safe unbounded FIFO.
//
// Any number of goroutines may Enqueue. Dequeue is meant for a single
// consumer: the buffered signal channel coalesces wake-ups, so two
// concurrent consumers could both wait on one signal.
//
// The queue is unbounded so Use never blocks and never drops while the
// Feature is running.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, v)

	// Non-blocking: a pending signal already covers this item.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]

	// Zero the slot so the backing array does not pin the item.
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return v, true
}

// Dequeue removes the front item, suspending until one is available.
// Returns false when ctx is done, or when the queue is closed and drained.
func (q *queue[T]) Dequeue(ctx context.Context) (T, bool) {
	for {
		if v, ok := q.TryDequeue(); ok {
			return v, true
		}

		if q.isClosed() {
			// Closed between the TryDequeue above and now; drain what is left.
			v, ok := q.TryDequeue()
			return v, ok
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-q.signal:
			// Either an item arrived or the channel was closed by Close.
		}
	}
}

// Len returns the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items and wakes any waiting consumer.
// Items already queued can still be dequeued. Idempotent.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

func (q *queue[T]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
