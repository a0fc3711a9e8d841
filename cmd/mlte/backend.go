package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mltehttp "github.com/mlte-team/mlte-sub000/internal/infra/http"
	"github.com/mlte-team/mlte-sub000/internal/infra/telemetry"
	"github.com/mlte-team/mlte-sub000/internal/state"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newBackendCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server until interrupted.

Example:
  mlte backend --config mlte.yaml
  STORE_URI=sqlite:///mlte.db JWT_SECRET_KEY=change-me mlte backend --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.BackendHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.BackendPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, version)
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}

			opts := state.Options{Logger: logger}
			deps := mltehttp.ServerDeps{}
			if cfg.MetricsEnabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				opts.Metrics = telemetry.NewMetrics(reg)
				deps.Gatherer = reg
			}

			st, err := state.New(ctx, cfg, opts)
			if err != nil {
				shutdownTracer(context.Background())
				return err
			}
			defer func() { _ = st.Close() }()
			if err := st.Init(ctx); err != nil {
				shutdownTracer(context.Background())
				return err
			}
			logger.Info("stores ready", "backends", st.BackendKinds())

			srv := mltehttp.NewServer(st, deps)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				shutdownTracer(context.Background())
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides BACKEND_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides BACKEND_PORT)")
	return cmd
}
