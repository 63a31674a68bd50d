package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/tui"
)

func addServe(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the sync loop until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()

			rt, err := o.open(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := rt.close(ctx); closeErr != nil {
					rt.logger.Error("shutdown error", slog.Any("error", closeErr))
				}
			}()

			return rt.serve(ctx, o.build)
		},
	}

	topLevel.AddCommand(cmd)
}

// newRegistry returns a Prometheus registry carrying the runtime collectors
// and the store gauge.
func (rt *services) newRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := handlers.RegisterStoreMetrics(reg, rt.store); err != nil {
		return nil, fmt.Errorf("registering store metrics: %w", err)
	}

	return reg, nil
}

// router builds the HTTP server with every route registered.
func (rt *services) router(build BuildInfo) (*http.Server, error) {
	cfg := rt.cfg

	reg, err := rt.newRegistry()
	if err != nil {
		return nil, err
	}

	buildInfo := handlers.NewBuildInfo(cfg.App.Name, build.Version, build.Commit, build.BuildTime)

	server := http.New(&cfg.Server, rt.logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		ServiceName: cfg.App.Name,
		Auth:        &cfg.Auth,
		Health:      handlers.NewHealthHandler(rt.health, buildInfo, reg),
		Quotes:      handlers.NewQuoteHandler(rt.store),
		Transfer:    handlers.NewTransferHandler(rt.transfer),
		Sync:        handlers.NewSyncHandler(rt.syncer),
		Timeout:     http.DefaultRequestTimeout,
	})

	return server, nil
}

// serve runs the HTTP server and the sync loop until ctx is cancelled or
// either of them fails.
func (rt *services) serve(ctx context.Context, build BuildInfo) error {
	server, err := rt.router(build)
	if err != nil {
		return err
	}

	rt.logger.InfoContext(ctx, "starting quotebook",
		slog.String("version", build.Version),
		slog.String("commit", build.Commit),
		slog.String("environment", rt.cfg.App.Environment),
		slog.String("addr", server.Addr()),
		slog.Bool("sync", rt.syncer != nil),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	if rt.syncer != nil {
		g.Go(func() error {
			return rt.syncer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	rt.logger.InfoContext(ctx, "shutdown complete")

	return nil
}

func addUI(topLevel *cobra.Command, o *options) {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Browse and edit quotes in the terminal.",
		Long: `Open the terminal UI. The sync loop runs in the background while
the UI is open. Logs only go to the log file, if one is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()

			rt, err := o.open(ctx, io.Discard)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := rt.close(ctx); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			return rt.ui(ctx, exportPath)
		},
	}

	cmd.Flags().StringVar(&exportPath, "export-path", tui.DefaultExportPath,
		"File written by the export key. The format follows the extension.")

	topLevel.AddCommand(cmd)
}

// ui shows the terminal UI and stops the sync loop once the user quits.
func (rt *services) ui(ctx context.Context, exportPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		return tui.Run(gctx, tui.Config{
			Store:      rt.store,
			Transfer:   rt.transfer,
			Syncer:     rt.syncer,
			ExportPath: exportPath,
			Logger:     rt.logger,
		})
	})

	if rt.syncer != nil {
		g.Go(func() error {
			return rt.syncer.Run(gctx)
		})
	}

	return g.Wait()
}
