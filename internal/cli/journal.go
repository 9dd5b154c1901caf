package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WOCOMLABS/jmv-arch/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database  string
	FeatureID string
}

// JournalFeatures lists journaled features.
type JournalFeatures struct {
	Features []journal.FeatureRecord `json:"features"`
}

func (r JournalFeatures) Text() string {
	if len(r.Features) == 0 {
		return "No features journaled\n"
	}
	var b strings.Builder
	for _, f := range r.Features {
		fmt.Fprintf(&b, "%s  %s  %d transition(s)\n", f.ID, f.Name, f.Transitions)
	}
	return b.String()
}

// JournalTransitions lists one feature's transitions.
type JournalTransitions struct {
	FeatureID   string               `json:"feature_id"`
	Transitions []journal.Transition `json:"transitions"`
}

func (r JournalTransitions) Text() string {
	if len(r.Transitions) == 0 {
		return fmt.Sprintf("No transitions found for feature: %s\n", r.FeatureID)
	}
	var b strings.Builder
	for _, t := range r.Transitions {
		cause := t.Cause
		if cause == "" {
			cause = "-"
		}
		fmt.Fprintf(&b, "#%d %-7s %-11s %s\n", t.Seq, cause, t.State, t.Payload)
	}
	return b.String()
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect a transition journal",
		Long: `List the features recorded in a journal, or the transitions of one
feature ordered by sequence number.

Examples:
  jmv journal --db ./jmv.db
  jmv journal --db ./jmv.db --feature 0190f5c2-...
  jmv journal --db ./jmv.db --feature 0190f5c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FeatureID, "feature", "", "feature id whose transitions to show")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := newOutput(opts.Format, cmd.OutOrStdout())

	j, err := journal.Open(opts.Database)
	if err != nil {
		return commandError(ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	if opts.FeatureID == "" {
		features, err := j.ListFeatures(ctx)
		if err != nil {
			return commandError(ErrCodeJournal, "failed to list features", err)
		}
		return out.Result(JournalFeatures{Features: features})
	}

	transitions, err := j.ReadTransitions(ctx, opts.FeatureID)
	if err != nil {
		return commandError(ErrCodeJournal, "failed to read transitions", err)
	}
	return out.Result(JournalTransitions{FeatureID: opts.FeatureID, Transitions: transitions})
}
