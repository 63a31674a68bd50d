package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// services is the wired application shared by every command.
type services struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  storage.Backend
	store    *app.QuoteStore
	transfer *app.Transfer
	health   *ports.DefaultHealthRegistry

	// syncer is nil when sync is disabled.
	syncer *app.Syncer

	closers []func(context.Context) error
}

// open loads configuration and wires the application. Logs go to logOut
// plus the rolling file when enabled. The caller must call close.
func (o *options) open(ctx context.Context, logOut io.Writer) (*services, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.NewWithCloser(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, logOut)
	logging.SetDefault(logger)

	rt := &services{
		cfg:    cfg,
		logger: logger,
		health: ports.NewHealthRegistry(),
	}
	rt.onClose(func(context.Context) error { return logCloser.Close() })

	if err := rt.wire(ctx); err != nil {
		_ = rt.close(ctx)
		return nil, err
	}

	return rt, nil
}

func (rt *services) wire(ctx context.Context) error {
	cfg := rt.cfg

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	rt.onClose(tel.Shutdown)

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	rt.backend = backend
	rt.onClose(func(context.Context) error { return backend.Close() })

	if err := rt.health.Register(backend); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	rt.store = app.NewQuoteStore(app.QuoteStoreConfig{
		Durable: backend,
		Session: storage.NewMemory(),
		Logger:  rt.logger,
	})
	rt.store.Subscribe(app.LoggingObserver(rt.logger))

	if err := rt.store.Load(ctx); err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	rt.transfer = app.NewTransfer(rt.store)

	if !cfg.Sync.Enabled {
		rt.logger.DebugContext(ctx, "sync disabled by configuration")
		return nil
	}

	return rt.wireSync()
}

func (rt *services) wireSync() error {
	cfg := rt.cfg

	clientCfg := &clients.Config{
		BaseURL:     cfg.Sync.BaseURL,
		ServiceName: cfg.Sync.ServiceName,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      rt.logger,
	}

	if token := cfg.Sync.Token; token != "" {
		clientCfg.AuthFunc = func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}

	client, err := clients.New(clientCfg)
	if err != nil {
		return fmt.Errorf("creating remote client: %w", err)
	}

	// The token field is redacted by the log sinks.
	rt.logger.Debug("sync enabled", slog.Any("sync", cfg.Sync))

	remote := acl.NewRemoteQuotes(acl.RemoteQuotesConfig{
		Client:   client,
		Path:     cfg.Sync.Path,
		Category: cfg.Sync.ServerCategory,
		Logger:   rt.logger,
	})

	if err := rt.health.Register(remote); err != nil {
		return fmt.Errorf("registering remote health check: %w", err)
	}

	metrics, err := telemetry.NewSyncMetrics()
	if err != nil {
		return fmt.Errorf("creating sync metrics: %w", err)
	}

	rt.syncer = app.NewSyncer(app.SyncerConfig{
		Store:          rt.store,
		Remote:         remote,
		Interval:       cfg.Sync.Interval,
		ServerCategory: cfg.Sync.ServerCategory,
		PostLocal:      cfg.Sync.PostLocal,
		Metrics:        metrics,
		Logger:         rt.logger,
	})

	return nil
}

func (rt *services) onClose(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// close releases resources in reverse order of acquisition. It runs with a
// context detached from ctx's cancellation so shutdown after a signal still flushes.
func (rt *services) close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error

	for _, fn := range slices.Backward(rt.closers) {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
