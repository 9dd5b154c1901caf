package periodictable

import (
	"context"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
)

// Reducer delegates every action to a Service and folds the result into
// the next state.
type Reducer struct {
	service feature.Service[Action, State]
}

// NewReducer creates a reducer over service.
func NewReducer(service feature.Service[Action, State]) *Reducer {
	return &Reducer{service: service}
}

func (r *Reducer) Reduce(ctx context.Context, action Action, current State) State {
	switch action {
	case ActionInitial, ActionLoad, ActionData:
		return feature.Fold(r.service.UseWith(ctx, action),
			func(next State) State { return next },
			func(err error) State { return Failure{Err: err} },
		)
	default:
		return current
	}
}
