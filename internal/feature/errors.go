package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FaultKind identifies where a fault was raised.
type FaultKind string

const (
	// FaultReducer is a panic inside Reducer.Reduce. The action is dropped.
	FaultReducer FaultKind = "reducer"

	// FaultSideEffect is a panic inside SideEffect.ExecuteWith.
	FaultSideEffect FaultKind = "side_effect"

	// FaultAction is a panic inside the thunk passed to Use.
	FaultAction FaultKind = "action"
)

// Fault describes an unexpected failure isolated by a Feature.
// Faults never escape Use, State or Stop; they go to Component.ErrorHandler.
type Fault struct {
	Kind FaultKind

	// Feature and FeatureID identify the reporting Feature.
	Feature   string
	FeatureID string

	// Action is the ActionName of the action involved, if known.
	Action string

	// Seq is the sequence number of the last published state when the
	// fault happened.
	Seq int64

	Err error
}

func (f *Fault) Error() string {
	if f.Action != "" {
		return fmt.Sprintf("%s fault in %s (action=%s, seq=%d): %v", f.Kind, f.Feature, f.Action, f.Seq, f.Err)
	}
	return fmt.Sprintf("%s fault in %s (seq=%d): %v", f.Kind, f.Feature, f.Seq, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsReducerFault reports whether err is (or wraps) a reducer Fault.
func IsReducerFault(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == FaultReducer
	}
	return false
}

// IsSideEffectFault reports whether err is (or wraps) a side-effect Fault.
func IsSideEffectFault(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == FaultSideEffect
	}
	return false
}

// ErrorHandler receives faults isolated by a Feature. It is called from
// the goroutine where the fault happened and must not block for long.
type ErrorHandler func(ctx context.Context, fault *Fault)

// LogFaults returns an ErrorHandler that logs every fault at error level.
// A nil logger uses slog.Default().
func LogFaults(logger *slog.Logger) ErrorHandler {
	return func(ctx context.Context, fault *Fault) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.ErrorContext(ctx, "feature fault",
			"kind", string(fault.Kind),
			"feature", fault.Feature,
			"feature_id", fault.FeatureID,
			"action", fault.Action,
			"seq", fault.Seq,
			"error", fault.Err,
		)
	}
}
