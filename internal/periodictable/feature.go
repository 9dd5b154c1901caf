package periodictable

import (
	"errors"
	"log/slog"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
)

// Feature is the running periodic-table feature.
type Feature = feature.Feature[Action, State]

// Config assembles the feature. Only Repository is required.
type Config struct {
	Repository   feature.Repository[Action, TableDTO]
	Lanes        feature.Lanes
	ErrorHandler feature.ErrorHandler
	SideEffect   feature.SideEffect[Action]
	Logger       *slog.Logger
}

// ErrNoRepository is returned by NewFeature when Config.Repository is nil.
var ErrNoRepository = errors.New("periodic table feature needs a repository")

// NewComponent wires repository -> service -> reducer into a component
// starting at Initialized.
func NewComponent(cfg Config) feature.Component[Action, State] {
	handler := cfg.ErrorHandler
	if handler == nil && cfg.Logger != nil {
		handler = feature.LogFaults(cfg.Logger)
	}
	return feature.Component[Action, State]{
		InitialState: Initialized{},
		Reducer:      NewReducer(NewService(cfg.Repository)),
		ErrorHandler: handler,
		Lanes:        cfg.Lanes,
		LoopLane:     feature.SelectIO,
		SideEffect:   cfg.SideEffect,
	}
}

// NewFeature builds and starts the periodic-table feature.
func NewFeature(cfg Config, opts ...feature.Option) (*Feature, error) {
	if cfg.Repository == nil {
		return nil, ErrNoRepository
	}
	if cfg.Logger != nil {
		opts = append([]feature.Option{feature.WithLogger(cfg.Logger)}, opts...)
	}
	return feature.New(NewComponent(cfg), opts...)
}
