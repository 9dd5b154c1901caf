// Package feature implements the unidirectional action → reducer → state
// engine.
//
// A Feature owns a queue of actions, one dispatch loop and an observable
// state cell. Callers submit actions with Use; the loop folds each action
// through the Reducer and publishes the result.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch Loop:
// Every Feature runs exactly one loop goroutine, started on the lane chosen
// by Component.LoopLane. It is the only writer of the state cell, so:
//   - Reductions never overlap
//   - The state produced by action n is the input of action n+1
//   - Published states are totally ordered by Snapshot.Seq
//
// Dispatch Flow:
//  1. Use() enqueues into an unbounded FIFO (non-blocking, false once stopped)
//  2. The loop suspends on the queue signal until an action is available
//  3. Reducer.Reduce(ctx, action, current) computes the next state
//  4. The state is stamped from the Clock and published to the StateCell
//  5. Every Subscription receives the snapshot, in order, without drops
//  6. The optional SideEffect runs on its own lane with the action
//
// Failure Model:
// A panicking reducer is recovered and reported to Component.ErrorHandler
// as a *Fault. The action produces no state and the loop keeps running.
// Collaborator failures are data: a Service returns Result failures and the
// reducer maps them into a failure-shaped State.
//
// Lifecycle:
// Running → Stopped. Stop() is idempotent, seals the state cell, cancels the
// loop context and closes the queue. In-flight reductions are abandoned and
// their results discarded. A stopped Feature never runs again.
package feature
