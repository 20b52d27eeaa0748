package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/api"
	"github.com/onionwatch/onionwatch/internal/clock/system"
	"github.com/onionwatch/onionwatch/internal/config"
	collyfetcher "github.com/onionwatch/onionwatch/internal/fetcher/colly"
	"github.com/onionwatch/onionwatch/internal/logging"
	"github.com/onionwatch/onionwatch/internal/progress"
	"github.com/onionwatch/onionwatch/internal/progress/sinks"
	"github.com/onionwatch/onionwatch/internal/storage/postgres"
	"github.com/onionwatch/onionwatch/internal/tracker"
)

// application holds the services shared by every subcommand. Stores are opened
// per command because the two pipelines talk to different databases.
type application struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    tracker.Clock
	registry *prometheus.Registry
	hub      *progress.Hub
	status   *api.Server
}

// newApplication is a factory variable so tests can inject a stub.
var newApplication = func(cfgPath string) (*application, error) {
	// An unreadable config file degrades to defaults with empty source and
	// keyword lists; only explicitly invalid values abort.
	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr != nil && errors.Is(cfgErr, config.ErrInvalid) {
		return nil, fmt.Errorf("load config: %w", cfgErr)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if cfgErr != nil {
		logger.Warn("config file unusable, continuing with defaults", zap.Error(cfgErr))
	}

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, err
	}
	hub := progress.NewHub(progress.Config{
		BatchSize: cfg.Verifier.BatchSize,
		// Probes can take the full HTTP timeout, so a tighter window would
		// flush undersized batches mid-run.
		MaxBatchWait: 2 * cfg.ProbeTimeout(),
		Logger:       logger,
	}, sinks.NewLogSink(logger), promSink)

	app := &application{
		cfg:      cfg,
		logger:   logger,
		clock:    system.New(),
		registry: registry,
		hub:      hub,
	}
	if cfg.Status.Addr != "" {
		app.status = api.NewServer(cfg.Status.Addr, registry, logger)
		app.status.Start()
	}
	return app, nil
}

// Close flushes pending progress batches and drains the status listener.
func (a *application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.status != nil {
		if err := a.status.Shutdown(ctx); err != nil {
			a.logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// probeFetcher builds the client used for collection and liveness probes.
func (a *application) probeFetcher() (tracker.Fetcher, error) {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.HTTP.UserAgent,
		Timeout:   a.cfg.ProbeTimeout(),
		Proxy:     a.cfg.HTTP.Proxy,
	})
}

// filterFetcher builds the slower client used for content scans.
func (a *application) filterFetcher() (tracker.Fetcher, error) {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.HTTP.UserAgent,
		Timeout:   a.cfg.FilterTimeout(),
		Proxy:     a.cfg.HTTP.Proxy,
	})
}

// openLinkStore connects to the liveness database.
func (a *application) openLinkStore(ctx context.Context) (*postgres.LinkStore, error) {
	store, err := postgres.NewLinkStore(ctx, postgres.Config{
		DSN:      a.cfg.DB.LinksDSN,
		Table:    a.cfg.DB.LinksTable,
		MaxConns: a.cfg.StoreMaxConns(),
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open link store: %w", err)
	}
	return store, nil
}

// openFilterStore connects to the match database.
func (a *application) openFilterStore(ctx context.Context) (*postgres.FilterStore, error) {
	store, err := postgres.NewFilterStore(ctx, postgres.Config{
		DSN:      a.cfg.DB.FilteredDSN,
		Table:    a.cfg.DB.FilteredTable,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open filter store: %w", err)
	}
	return store, nil
}
