// Package periodictable is the example feature: it loads the list of
// chemical elements from a backend and exposes the loading lifecycle as
// state.
//
// Wiring, from the outside in:
//
//	Feature -> Reducer -> Service -> Repository -> HTTP backend
//
// The reducer delegates every action to the service and folds the result;
// failures become the Failure state. The engine itself never invents
// Failure.
package periodictable

import (
	"fmt"
	"strings"
)

// Action is the closed set of periodic-table actions.
type Action int

const (
	// ActionInitial resets the feature to Initialized.
	ActionInitial Action = iota
	// ActionLoad marks the start of a load.
	ActionLoad
	// ActionData fetches the elements from the repository.
	ActionData
)

func (a Action) ActionName() string {
	switch a {
	case ActionInitial:
		return "Initial"
	case ActionLoad:
		return "Load"
	case ActionData:
		return "Data"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func (a Action) String() string {
	return a.ActionName()
}

// ParseAction maps an action name (case-insensitive) to its Action.
func ParseAction(name string) (Action, error) {
	for _, a := range []Action{ActionInitial, ActionLoad, ActionData} {
		if strings.EqualFold(name, a.ActionName()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// State is the closed set of periodic-table states.
//
//sumtype:decl
type State interface {
	StateName() string
	periodicTableState()
}

// Initialized is the state before any load.
type Initialized struct{}

// Loading is published while a load is under way.
type Loading struct{}

// Success holds the loaded elements.
type Success struct {
	Elements []Element
}

// Failure holds the cause of a failed load.
type Failure struct {
	Err error
}

// Element is one chemical element as presented to observers.
type Element struct {
	Symbol string
}

func (Initialized) StateName() string { return "Initialized" }
func (Loading) StateName() string     { return "Loading" }
func (Success) StateName() string     { return "Success" }
func (Failure) StateName() string     { return "Failure" }

func (Initialized) periodicTableState() {}
func (Loading) periodicTableState()     {}
func (Success) periodicTableState()     {}
func (Failure) periodicTableState()     {}

func (s Success) String() string {
	symbols := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		symbols[i] = e.Symbol
	}
	return fmt.Sprintf("Success(%s)", strings.Join(symbols, ", "))
}

func (f Failure) String() string {
	return fmt.Sprintf("Failure(%v)", f.Err)
}

// View is the serialisable form of a State.
type View struct {
	State    string   `json:"state"`
	Elements []string `json:"elements,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Describe renders s as a View.
func Describe(s State) View {
	v := View{State: s.StateName()}
	switch s := s.(type) {
	case Initialized, Loading:
	case Success:
		v.Elements = make([]string, len(s.Elements))
		for i, e := range s.Elements {
			v.Elements[i] = e.Symbol
		}
	case Failure:
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
	}
	return v
}
