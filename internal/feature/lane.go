package feature

import (
	"context"
	"runtime"
	"sync"
)

// Lane is an execution lane: a policy for where submitted work runs.
type Lane interface {
	Go(fn func())
	Name() string
}

// LaneSelector picks the lane a Feature uses for one kind of work.
type LaneSelector func(Lanes) Lane

// Lanes is the set of lanes available to features.
type Lanes struct {
	Main       Lane
	Default    Lane
	IO         Lane
	Unconfined Lane
}

// Lane selectors.
var (
	SelectMain       LaneSelector = func(l Lanes) Lane { return l.Main }
	SelectDefault    LaneSelector = func(l Lanes) Lane { return l.Default }
	SelectIO         LaneSelector = func(l Lanes) Lane { return l.IO }
	SelectUnconfined LaneSelector = func(l Lanes) Lane { return l.Unconfined }
)

// NewLanes creates the standard lane set:
//   - Main: one serial worker
//   - Default: goroutines bounded by GOMAXPROCS
//   - IO: one goroutine per task
//   - Unconfined: runs on the caller
//
// Close releases the Main worker.
func NewLanes() Lanes {
	return Lanes{
		Main:       NewSerialLane("main"),
		Default:    NewPoolLane("default", runtime.GOMAXPROCS(0)),
		IO:         GoroutineLane{},
		Unconfined: InlineLane{},
	}
}

// Close shuts down lanes that own workers.
func (l Lanes) Close() {
	for _, lane := range []Lane{l.Main, l.Default, l.IO, l.Unconfined} {
		if c, ok := lane.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// withDefaults fills unset lanes. Main falls back to a goroutine lane
// because a serial worker would need an owner to close it.
func (l Lanes) withDefaults() Lanes {
	if l.IO == nil {
		l.IO = GoroutineLane{}
	}
	if l.Default == nil {
		l.Default = NewPoolLane("default", runtime.GOMAXPROCS(0))
	}
	if l.Main == nil {
		l.Main = l.IO
	}
	if l.Unconfined == nil {
		l.Unconfined = InlineLane{}
	}
	return l
}

// GoroutineLane runs each task on a new goroutine.
type GoroutineLane struct{}

func (GoroutineLane) Go(fn func()) { go fn() }

func (GoroutineLane) Name() string { return "io" }

// InlineLane runs each task on the calling goroutine.
type InlineLane struct{}

func (InlineLane) Go(fn func()) { fn() }

func (InlineLane) Name() string { return "unconfined" }

// PoolLane runs tasks on goroutines, at most size at a time. Go never
// blocks; excess tasks wait for a slot on their own goroutine.
type PoolLane struct {
	name string
	sem  chan struct{}
}

// NewPoolLane creates a lane with size slots (at least 1).
func NewPoolLane(name string, size int) *PoolLane {
	if size < 1 {
		size = 1
	}
	return &PoolLane{name: name, sem: make(chan struct{}, size)}
}

func (p *PoolLane) Go(fn func()) {
	go func() {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		fn()
	}()
}

func (p *PoolLane) Name() string { return p.name }

// SerialLane runs tasks one at a time, in submission order, on a single
// worker goroutine.
type SerialLane struct {
	name  string
	tasks *queue[func()]
	done  chan struct{}
	once  sync.Once
}

// NewSerialLane starts the worker.
func NewSerialLane(name string) *SerialLane {
	l := &SerialLane{
		name:  name,
		tasks: newQueue[func()](),
		done:  make(chan struct{}),
	}
	go l.work(context.Background())
	return l
}

func (l *SerialLane) work(ctx context.Context) {
	defer close(l.done)
	for {
		fn, ok := l.tasks.Dequeue(ctx)
		if !ok {
			return
		}
		fn()
	}
}

// Go queues fn. Tasks submitted after Close are dropped.
func (l *SerialLane) Go(fn func()) {
	l.tasks.Enqueue(fn)
}

func (l *SerialLane) Name() string { return l.name }

// Close stops accepting tasks; queued tasks still run. Features stepping
// on a closed lane stall until stopped, so stop them first.
func (l *SerialLane) Close() {
	l.once.Do(func() {
		l.tasks.Close()
	})
}

// Done is closed when the worker has exited.
func (l *SerialLane) Done() <-chan struct{} {
	return l.done
}
