package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
	"github.com/WOCOMLABS/jmv-arch/internal/journal"
	"github.com/WOCOMLABS/jmv-arch/internal/periodictable"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Actions []string
	Host    string
	Port    int
	Token   string
	Journal string
	Timeout time.Duration

	// ids overrides feature id generation for deterministic output.
	ids feature.IDGenerator
}

// FetchStep is one observed state.
type FetchStep struct {
	Seq   int64  `json:"seq"`
	Cause string `json:"cause,omitempty"`
	periodictable.View
}

// FetchResult is the output of the fetch command.
type FetchResult struct {
	FeatureID string      `json:"feature_id"`
	Feature   string      `json:"feature"`
	Steps     []FetchStep `json:"steps"`
}

// Text renders one line per observed state.
func (r FetchResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Feature, r.FeatureID)
	for _, s := range r.Steps {
		cause := s.Cause
		if cause == "" {
			cause = "-"
		}
		fmt.Fprintf(&b, "  #%d %-7s %s\n", s.Seq, cause, describeView(s.View))
	}
	return b.String()
}

func describeView(v periodictable.View) string {
	switch {
	case v.Error != "":
		return v.State + ": " + v.Error
	case len(v.Elements) > 0:
		return v.State + " [" + strings.Join(v.Elements, " ") + "]"
	default:
		return v.State
	}
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	return newFetchCommand(rootOpts, nil)
}

func newFetchCommand(rootOpts *RootOptions, ids feature.IDGenerator) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts, ids: ids}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the periodic-table feature against a backend",
		Long: `Start the periodic-table feature, submit actions in order and print
every state it publishes.

Exits with code 1 if the last state is a Failure.

Examples:
  jmv fetch
  jmv fetch --host 127.0.0.1 --port 9090 --token secret
  jmv fetch --action Initial --action Load --action Data --format json
  jmv fetch --journal ./jmv.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Actions, "action", []string{"Load", "Data"}, "actions to submit, in order")
	cmd.Flags().StringVar(&opts.Host, "host", "", "backend host (overrides backend.host)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "backend port (overrides backend.port)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token (overrides backend.token)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record transitions into this SQLite journal")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "maximum time to wait for all states")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	out := newOutput(opts.Format, cmd.OutOrStdout())

	actions := make([]periodictable.Action, 0, len(opts.Actions))
	for _, name := range opts.Actions {
		a, err := periodictable.ParseAction(name)
		if err != nil {
			return commandError(ErrCodeUsage, "invalid --action", err)
		}
		actions = append(actions, a)
	}

	b := opts.config().Backend
	if opts.Host != "" {
		b.Host = opts.Host
	}
	if opts.Port != 0 {
		b.Port = opts.Port
	}
	if opts.Token != "" {
		b.Token = opts.Token
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), opts.Timeout)
	defer cancel()

	logger := opts.logger(cmd.ErrOrStderr())
	ids := opts.ids
	if ids == nil {
		ids = feature.UUIDv7Generator{}
	}

	repo := periodictable.NewHTTPRepository(b, periodictable.WithRepositoryLogger(logger))
	f, err := periodictable.NewFeature(periodictable.Config{
		Repository: repo,
		SideEffect: periodictable.NewActionLog(logger),
		Logger:     logger,
	}, feature.WithIDGenerator(ids), feature.WithLogger(logger))
	if err != nil {
		return commandError(ErrCodeFeature, "failed to start feature", err)
	}
	defer f.Stop()

	// finish stops the feature and, when journaling, waits for the recorder
	// to drain before the journal is closed. Every return path runs it.
	finish := func() error {
		f.Stop()
		return nil
	}
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return commandError(ErrCodeJournal, "failed to open journal", err)
		}
		if err := j.RegisterFeature(ctx, journal.FeatureRecord{ID: f.ID(), Name: f.Name()}); err != nil {
			_ = j.Close()
			return commandError(ErrCodeJournal, "failed to register feature", err)
		}

		recorded := make(chan error, 1)
		rsub := f.State().Subscribe()
		go func() {
			recorded <- journal.Record(ctx, j, f.ID(), rsub, encodeState)
		}()
		finish = sync.OnceValue(func() error {
			f.Stop()
			err := <-recorded
			if cerr := j.Close(); err == nil {
				err = cerr
			}
			return err
		})
	}
	defer finish()

	sub := f.State().Subscribe()
	defer sub.Close()

	for _, a := range actions {
		if !f.Use(func() periodictable.Action { return a }) {
			return commandError(ErrCodeFeature, "feature rejected action "+a.ActionName(), nil)
		}
	}

	result := FetchResult{FeatureID: f.ID(), Feature: f.Name()}
	var last periodictable.State
	for {
		snap, ok := sub.Next(ctx)
		if !ok {
			return commandError(ErrCodeBackend, "timed out waiting for states", ctx.Err())
		}
		result.Steps = append(result.Steps, FetchStep{
			Seq:   snap.Seq,
			Cause: snap.Cause,
			View:  periodictable.Describe(snap.State),
		})
		last = snap.State
		if snap.Seq >= int64(len(actions)) {
			break
		}
	}

	if err := finish(); err != nil {
		return commandError(ErrCodeJournal, "failed to journal transitions", err)
	}

	if err := out.Result(result); err != nil {
		return err
	}

	if failure, ok := last.(periodictable.Failure); ok {
		return featureFailure("fetch failed", failure.Err)
	}
	return nil
}

func encodeState(s periodictable.State) (string, any) {
	return s.StateName(), periodictable.Describe(s)
}
