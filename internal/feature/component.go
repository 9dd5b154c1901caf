package feature

import (
	"errors"
	"fmt"
)

// Component is the construction-time configuration of a Feature.
// New copies it; later changes to the value have no effect.
type Component[A Action, S State] struct {
	// Name labels logs and metrics. Defaults to "Feature[<initial state>]".
	Name string

	// InitialState is published at Seq 0.
	InitialState S

	// Reducer folds actions into state. Required.
	Reducer Reducer[A, S]

	// ErrorHandler receives isolated faults. Defaults to LogFaults.
	ErrorHandler ErrorHandler

	// Lanes available to this feature. Unset lanes get defaults.
	Lanes Lanes

	// LoopLane selects the lane each reduction step runs on. Defaults to
	// SelectIO. The loop itself owns a goroutine and hands the lane one
	// step at a time, so lanes can be shared between features.
	LoopLane LaneSelector

	// SideEffect, if set, runs after every successful reduction.
	SideEffect SideEffect[A]

	// SideEffectLane selects the lane side effects run on.
	// Defaults to SelectDefault.
	SideEffectLane LaneSelector
}

// ErrNilReducer is returned by Validate when no reducer is configured.
var ErrNilReducer = errors.New("component has no reducer")

// ErrNilLoopLane is returned by Validate when the loop lane selector
// yields no lane.
var ErrNilLoopLane = errors.New("loop lane selector returned nil")

// Validate checks that the component can host a dispatch loop.
func (c Component[A, S]) Validate() error {
	if c.Reducer == nil {
		return ErrNilReducer
	}
	c = c.withDefaults()
	if c.LoopLane(c.Lanes) == nil {
		return ErrNilLoopLane
	}
	return nil
}

func (c Component[A, S]) withDefaults() Component[A, S] {
	if c.Name == "" {
		c.Name = fmt.Sprintf("Feature[%s]", stateName(c.InitialState))
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = LogFaults(nil)
	}
	c.Lanes = c.Lanes.withDefaults()
	if c.LoopLane == nil {
		c.LoopLane = SelectIO
	}
	if c.SideEffectLane == nil {
		c.SideEffectLane = SelectDefault
	}
	return c
}

// stateName tolerates a nil interface initial state.
func stateName[S State](s S) string {
	if any(s) == nil {
		return "<nil>"
	}
	return s.StateName()
}
