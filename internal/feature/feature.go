package feature

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WOCOMLABS/jmv-arch/internal/metrics"
)

// Status is the lifecycle state of a Feature.
type Status int32

const (
	// Running is entered at construction.
	Running Status = iota
	// Stopped is terminal.
	Stopped
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Feature is the runtime unit combining an action queue, a reducer and an
// observable current state.
//
// Thread-safety model:
//   - Use(), State(), Current(), Stop(): safe from any goroutine
//   - the dispatch loop is the only writer of the state cell
type Feature[A Action, S State] struct {
	id        string
	component Component[A, S]
	logger    *slog.Logger
	metrics   bool

	queue *queue[A]
	cell  *StateCell[S]
	clock *Clock

	status atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Option configures a Feature beyond its Component.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	ids     IDGenerator
	metrics bool
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIDGenerator sets the id source. Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithMetrics toggles Prometheus recording. Default: enabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metrics = enabled
	}
}

// New validates the component, publishes its initial state and starts the
// dispatch loop.
func New[A Action, S State](component Component[A, S], opts ...Option) (*Feature[A, S], error) {
	if err := component.Validate(); err != nil {
		return nil, fmt.Errorf("new feature: %w", err)
	}
	component = component.withDefaults()

	o := options{
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
		metrics: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	f := &Feature[A, S]{
		id:        o.ids.Generate(),
		component: component,
		metrics:   o.metrics,
		queue:     newQueue[A](),
		cell:      NewStateCell(component.InitialState),
		clock:     NewClock(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	f.logger = o.logger.With("feature", component.Name, "feature_id", f.id)

	lane := component.LoopLane(component.Lanes)
	f.logger.Debug("feature starting",
		"initial_state", stateName(component.InitialState),
		"loop_lane", lane.Name(),
	)
	go f.run(lane)

	return f, nil
}

// ID returns the instance id.
func (f *Feature[A, S]) ID() string {
	return f.id
}

// Name returns the component name.
func (f *Feature[A, S]) Name() string {
	return f.component.Name
}

// Status returns Running or Stopped.
func (f *Feature[A, S]) Status() Status {
	return Status(f.status.Load())
}

// Use builds an action and queues it for reduction.
//
// Returns true if the action was accepted. Returns false once the Feature
// is stopped, or if the thunk panics (reported as a FaultAction). Acceptance
// does not guarantee reduction: an action racing with Stop may be accepted
// and then discarded.
func (f *Feature[A, S]) Use(action func() A) bool {
	if f.Status() == Stopped {
		f.recordAction(false)
		return false
	}

	a, ok := f.build(action)
	if !ok {
		f.recordAction(false)
		return false
	}

	accepted := f.queue.Enqueue(a)
	f.recordAction(accepted)
	return accepted
}

// build runs the caller's thunk, isolating a panic.
func (f *Feature[A, S]) build(action func() A) (a A, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			f.fault(FaultAction, "", &PanicError{Value: rec, Stack: debug.Stack()})
			ok = false
		}
	}()
	return action(), true
}

// State returns the observable state cell.
func (f *Feature[A, S]) State() *StateCell[S] {
	return f.cell
}

// Current returns the current state.
func (f *Feature[A, S]) Current() S {
	return f.cell.Value()
}

// Stop makes the Feature permanently inert. Idempotent.
//
// After Stop returns no state is published, queued actions are never
// reduced and Use returns false. A reduction in flight is abandoned through
// its cancelled context, not awaited; use Done to wait for the loop to exit.
func (f *Feature[A, S]) Stop() {
	f.once.Do(func() {
		f.status.Store(int32(Stopped))
		f.cell.seal()
		f.cancel()
		f.queue.Close()
		f.logger.Debug("feature stopped",
			"seq", f.clock.Current(),
			"dropped_actions", f.queue.Len(),
		)
	})
}

// Done is closed when the dispatch loop has exited.
func (f *Feature[A, S]) Done() <-chan struct{} {
	return f.done
}

// run is the dispatch loop. Each action becomes one step on lane, and the
// loop waits for it before dequeuing the next.
// CRITICAL: at most one step is in flight, so steps are the only writers
// of f.cell and never overlap.
func (f *Feature[A, S]) run(lane Lane) {
	defer close(f.done)

	for {
		action, ok := f.queue.Dequeue(f.ctx)
		if !ok || f.ctx.Err() != nil {
			return
		}

		stepped := make(chan struct{})
		lane.Go(func() {
			defer close(stepped)
			f.dispatch(action)
		})

		select {
		case <-stepped:
		case <-f.ctx.Done():
			// The in-flight step sees the cancelled ctx and the sealed cell.
			return
		}
	}
}

// dispatch reduces one action and publishes the result.
func (f *Feature[A, S]) dispatch(action A) {
	start := time.Now()

	next, ok := f.reduce(action)
	if !ok {
		return
	}

	// Stopped while reducing: the result is discarded.
	if f.ctx.Err() != nil {
		return
	}

	snap := Snapshot[S]{
		Seq:   f.clock.Current() + 1,
		Cause: action.ActionName(),
		State: next,
	}
	if !f.cell.publish(snap) {
		return
	}
	f.clock.Next()

	elapsed := time.Since(start)
	if f.metrics {
		metrics.RecordTransition(f.component.Name, elapsed)
	}
	f.logger.Debug("state published",
		"seq", snap.Seq,
		"action", snap.Cause,
		"state", stateName(next),
		"duration", elapsed,
	)

	if f.component.SideEffect != nil {
		f.sideEffect(action)
	}
}

// reduce calls the reducer with the current state, recovering a panic into
// a FaultReducer. The faulting action produces no state.
func (f *Feature[A, S]) reduce(action A) (next S, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			f.fault(FaultReducer, action.ActionName(), &PanicError{Value: rec, Stack: debug.Stack()})
			ok = false
		}
	}()
	return f.component.Reducer.Reduce(f.ctx, action, f.cell.Value()), true
}

func (f *Feature[A, S]) sideEffect(action A) {
	lane := f.component.SideEffectLane(f.component.Lanes)
	lane.Go(func() {
		defer func() {
			if rec := recover(); rec != nil {
				f.fault(FaultSideEffect, action.ActionName(), &PanicError{Value: rec, Stack: debug.Stack()})
			}
		}()
		f.component.SideEffect.ExecuteWith(action)
	})
}

func (f *Feature[A, S]) fault(kind FaultKind, action string, err error) {
	if f.metrics {
		metrics.RecordFault(f.component.Name, string(kind))
	}
	f.component.ErrorHandler(f.ctx, &Fault{
		Kind:      kind,
		Feature:   f.component.Name,
		FeatureID: f.id,
		Action:    action,
		Seq:       f.clock.Current(),
		Err:       err,
	})
}

func (f *Feature[A, S]) recordAction(accepted bool) {
	if f.metrics {
		metrics.RecordAction(f.component.Name, accepted)
	}
}
