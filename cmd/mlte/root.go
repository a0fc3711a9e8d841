package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mlte-team/mlte-sub000/internal/config"
	"github.com/mlte-team/mlte-sub000/internal/infra/logging"
	"github.com/mlte-team/mlte-sub000/internal/state"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mlte",
		Short: "Machine learning test and evaluation backend",
		Long: `mlte stores negotiation cards, test suites, evidence and results for
machine learning models, and serves them over an authenticated HTTP API.

Configuration is read from an optional YAML file and then the environment,
with environment variables taking precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $MLTE_CONFIG)")

	cmd.AddCommand(newBackendCmd(opts))
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newReconcileCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// withState opens and initializes the stores for a one-shot command.
func (o *rootOptions) withState(ctx context.Context, fn func(*state.State) error) error {
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	st, err := state.New(ctx, cfg, state.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	if err := st.Init(ctx); err != nil {
		return err
	}
	return fn(st)
}
