package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WOCOMLABS/jmv-arch/internal/backend"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr  string
	Token string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mock periodic-table backend",
		Long: `Serve the embedded periodic table over HTTP until interrupted.

Routes:
  GET /periodic-table   the elements fixture
  GET /healthz          liveness probe
  GET /metrics          Prometheus metrics

Examples:
  jmv serve
  jmv serve --addr 127.0.0.1:9090 --token secret`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "require this bearer token on /periodic-table")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.config().Server
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	logger := opts.logger(cmd.ErrOrStderr())
	srv, err := backend.New(cfg, backend.WithLogger(logger), backend.WithToken(opts.Token))
	if err != nil {
		return commandError(ErrCodeBackend, "failed to build backend", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return commandError(ErrCodeBackend, "backend stopped", err)
	}
	return nil
}
