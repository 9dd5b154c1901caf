package feature

import (
	"context"
	"sync"
)

// Snapshot is one published state.
type Snapshot[S any] struct {
	// Seq is 0 for the initial state and increases by one per transition.
	Seq int64

	// Cause is the ActionName of the action that produced this state,
	// empty for the initial state.
	Cause string

	State S
}

// StateCell is a single-writer, multi-reader observable holding the
// current state of a Feature.
//
// Subscribers see "replay latest, then live": a new Subscription first
// yields the current snapshot, then every later snapshot in publish order.
// Each subscription buffers independently, so a slow reader never holds
// back the writer or other readers.
type StateCell[S any] struct {
	mu      sync.Mutex
	current Snapshot[S]
	subs    map[uint64]*Subscription[S]
	nextID  uint64
	sealed  bool
}

// NewStateCell creates a cell holding initial at Seq 0.
func NewStateCell[S any](initial S) *StateCell[S] {
	return &StateCell[S]{
		current: Snapshot[S]{State: initial},
		subs:    make(map[uint64]*Subscription[S]),
	}
}

// Value returns the current state.
func (c *StateCell[S]) Value() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.State
}

// Snapshot returns the current snapshot.
func (c *StateCell[S]) Snapshot() Snapshot[S] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe starts observing the cell. The returned subscription already
// holds the current snapshot. Subscribing to a sealed cell yields the final
// snapshot and then ends.
func (c *StateCell[S]) Subscribe() *Subscription[S] {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription[S]{
		cell:  c,
		id:    c.nextID,
		queue: newQueue[Snapshot[S]](),
	}
	c.nextID++

	sub.queue.Enqueue(c.current)
	if c.sealed {
		sub.queue.Close()
		return sub
	}

	c.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of live subscriptions.
func (c *StateCell[S]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// publish replaces the current snapshot and fans it out.
// Returns false, publishing nothing, once the cell is sealed.
func (c *StateCell[S]) publish(s Snapshot[S]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return false
	}

	c.current = s
	for _, sub := range c.subs {
		sub.queue.Enqueue(s)
	}
	return true
}

// seal freezes the cell. Subscriptions end after draining what they hold.
func (c *StateCell[S]) seal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return
	}

	c.sealed = true
	for id, sub := range c.subs {
		sub.queue.Close()
		delete(c.subs, id)
	}
}

func (c *StateCell[S]) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// Subscription is one observer's ordered view of a StateCell.
// It is meant for a single reading goroutine.
type Subscription[S any] struct {
	cell  *StateCell[S]
	id    uint64
	queue *queue[Snapshot[S]]
	once  sync.Once
}

// Next returns the next snapshot, suspending until one is published.
// Returns false when ctx is done, or when the subscription has ended
// (closed, or the Feature stopped) and everything it held was read.
func (s *Subscription[S]) Next(ctx context.Context) (Snapshot[S], bool) {
	return s.queue.Dequeue(ctx)
}

// Updates streams snapshots on a channel that is closed when the
// subscription ends or ctx is done.
func (s *Subscription[S]) Updates(ctx context.Context) <-chan Snapshot[S] {
	out := make(chan Snapshot[S])
	go func() {
		defer close(out)
		for {
			snap, ok := s.Next(ctx)
			if !ok {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close detaches the subscription. Snapshots already buffered can still be
// read with Next. Idempotent.
func (s *Subscription[S]) Close() {
	s.once.Do(func() {
		s.cell.unsubscribe(s.id)
		s.queue.Close()
	})
}
