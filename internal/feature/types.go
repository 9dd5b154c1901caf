package feature

import "context"

// Action is implemented by every value that may be submitted to a Feature.
// Closed sets of actions are int enums so reducers can switch exhaustively.
type Action interface {
	ActionName() string
}

// State is implemented by every value a Feature can publish.
// Closed sets of states are sealed interfaces.
type State interface {
	StateName() string
}

// DTO is a data-transfer value returned by a Repository before it is
// mapped into a State. Validate rejects payloads that decoded but are
// unusable.
type DTO interface {
	Validate() error
}

// Reducer folds an action into the current state.
//
// Reduce must not panic. The context is cancelled when the owning Feature
// stops; a reducer blocked on a collaborator should return promptly then.
type Reducer[A Action, S State] interface {
	Reduce(ctx context.Context, action A, current S) S
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc[A Action, S State] func(ctx context.Context, action A, current S) S

func (f ReducerFunc[A, S]) Reduce(ctx context.Context, action A, current S) S {
	return f(ctx, action, current)
}

// Service maps an action to a state, calling its Repository when needed.
// Failures are returned as Result values, never raised.
type Service[A Action, S State] interface {
	UseWith(ctx context.Context, action A) Result[S]
}

// ServiceFunc adapts a function to Service.
type ServiceFunc[A Action, S State] func(ctx context.Context, action A) Result[S]

func (f ServiceFunc[A, S]) UseWith(ctx context.Context, action A) Result[S] {
	return f(ctx, action)
}

// Repository performs one external interaction per call and returns a DTO.
type Repository[A Action, D DTO] interface {
	InteractWith(ctx context.Context, action A) (D, error)
}

// RepositoryFunc adapts a function to Repository.
type RepositoryFunc[A Action, D DTO] func(ctx context.Context, action A) (D, error)

func (f RepositoryFunc[A, D]) InteractWith(ctx context.Context, action A) (D, error) {
	return f(ctx, action)
}

// SideEffect is a fire-and-forget hook invoked with each reduced action.
// It is not part of the state-transition path.
type SideEffect[A Action] interface {
	ExecuteWith(action A)
}

// SideEffectFunc adapts a function to SideEffect.
type SideEffectFunc[A Action] func(action A)

func (f SideEffectFunc[A]) ExecuteWith(action A) {
	f(action)
}
