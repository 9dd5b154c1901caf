package feature

import "sync/atomic"

// Clock stamps published states with a strictly increasing sequence number.
//
// Sequence 0 is the initial state; the first reduced action publishes 1.
// Only the dispatch loop calls Next, but Current may be read from anywhere.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
