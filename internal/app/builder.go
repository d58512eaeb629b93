package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/charon"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/db"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/hierarchy"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/httpclient"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

// TracerName names the tracer of sync operations
const TracerName = "github.com/NationalGenomicsInfrastructure/acheron"

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig holds what NewSyncApp assembles the app from. It supports
// dependency injection for testing while building production components by
// default.
type syncAppConfig struct {
	config *config.Config
	runID  string

	// Logging
	handler slog.Handler
	level   slog.Leveler

	// Telemetry components
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Optional component overrides (primarily for testing)
	source    lims.Source
	sessions  coordinator.SessionFactory
	transport func() http.RoundTripper
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		level: slog.LevelInfo,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = &config.Config{}
	}
	if cfg.handler == nil {
		cfg.handler = slog.Default().Handler()
	}
	if cfg.transport == nil {
		cfg.transport = func() http.RoundTripper {
			return http.DefaultTransport.(*http.Transport).Clone()
		}
	}
	return cfg, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if c == nil {
			return errors.New("config cannot be nil")
		}
		cfg.config = c
		return nil
	}
}

// WithRunID sets the id every record of the run is tagged with
func WithRunID(id string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.runID = id
		return nil
	}
}

// WithLogHandler sets the main log handler. Worker records are replayed on it.
func WithLogHandler(h slog.Handler, level slog.Leveler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.handler = h
		if level != nil {
			cfg.level = level
		}
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithSource injects the LIMS source used for project selection and single
// project syncs (for testing)
func WithSource(src lims.Source) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.source = src
		return nil
	}
}

// WithSessionFactory injects the per-worker LIMS sessions (for testing)
func WithSessionFactory(f coordinator.SessionFactory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.sessions = f
		return nil
	}
}

// WithTransport sets the base HTTP transport of every Charon client
func WithTransport(rt http.RoundTripper) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if rt == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = func() http.RoundTripper { return rt }
		return nil
	}
}

// NewSyncApp assembles the sync application. It checks the Charon settings
// before it connects to the LIMS.
func NewSyncApp(ctx context.Context, opts ...SyncAppOptions) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	token, err := cfg.config.Charon.GetToken()
	if err != nil {
		return nil, err
	}
	baseURL := ""
	if cfg.config.Charon != nil {
		baseURL = cfg.config.Charon.BaseURL
	}
	if _, err := charon.NewClient(baseURL, token); err != nil {
		return nil, err
	}

	components := &AppComponents{}
	cleanup := func() {}

	if cfg.source == nil || cfg.sessions == nil {
		pool, err := db.NewPool(ctx, cfg.config.Database, cfg.config.Workers.GetCount())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to LIMS: %w", err)
		}
		components.Pool = pool
		cleanup = func() {
			slog.Info("Closing database connection pool")
			pool.Close()
		}
	}

	if err := buildLIMSComponents(cfg, components); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build LIMS components: %w", err)
	}

	managers, err := buildManagerFactory(cfg, baseURL, token)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}
	components.Managers = managers

	coord, err := buildCoordinator(cfg, components)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build coordinator: %w", err)
	}
	components.Coordinator = coord

	return &SyncApp{
		components: components,
		runID:      cfg.runID,
		logger:     slog.New(cfg.handler).With("run_id", cfg.runID),
		cleanup:    cleanup,
	}, nil
}

// LIMSOptions maps the LIMS section of the configuration to source options,
// leaving unset values to the source defaults
func LIMSOptions(l *config.LIMSConfig, tracer trace.Tracer) []lims.Option {
	opts := []lims.Option{lims.WithTracer(tracer)}
	if l == nil {
		return opts
	}
	if len(l.LibPrepTypeIDs) > 0 {
		opts = append(opts, lims.WithLibPrepTypeIDs(l.LibPrepTypeIDs...))
	}
	if len(l.SeqRunTypeIDs) > 0 {
		opts = append(opts, lims.WithSeqRunTypeIDs(l.SeqRunTypeIDs...))
	}
	if w := l.GetRecentWindow(); w > 0 {
		opts = append(opts, lims.WithRecentWindow(w))
	}
	if since := l.GetAllProjectsSince(); !since.IsZero() {
		opts = append(opts, lims.WithAllProjectsSince(since))
	}
	return opts
}

func buildLIMSComponents(cfg *syncAppConfig, components *AppComponents) error {
	opts := LIMSOptions(cfg.config.LIMS, tracer(cfg))

	components.Source = cfg.source
	if components.Source == nil {
		src, err := lims.NewPostgresSource(append([]lims.Option{lims.WithQuerier(components.Pool)}, opts...)...)
		if err != nil {
			return err
		}
		components.Source = src
	}

	components.Sessions = cfg.sessions
	if components.Sessions == nil {
		components.Sessions = db.NewSourceFactory(components.Pool, cfg.config.Database.GetConnectTimeout(), opts...)
	}
	return nil
}

// buildManagerFactory returns the factory giving every worker its own Charon
// client and sync manager
func buildManagerFactory(cfg *syncAppConfig, baseURL, token string) (coordinator.ManagerFactory, error) {
	syncMetrics, err := telemetry.NewSyncMetrics(cfg.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	timeout := cfg.config.Charon.GetTimeout()
	project := cfg.config.Project

	return func(source lims.Source, logger *slog.Logger) (pkgsync.Manager, error) {
		transport, err := telemetry.InstrumentTransport(cfg.transport(), cfg.tracerProvider, cfg.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to instrument Charon transport: %w", err)
		}
		client, err := charon.NewClient(baseURL, token,
			charon.WithHTTPClient(httpclient.NewDefaultClient(timeout,
				httpclient.WithHeader(charon.TokenHeader, token),
				httpclient.WithTransport(transport))),
			charon.WithTracer(tracer(cfg)))
		if err != nil {
			return nil, err
		}

		return pkgsync.NewDefaultSyncManager(source, client.WithLogger(logger),
			pkgsync.WithLogger(logger),
			pkgsync.WithTracer(tracer(cfg)),
			pkgsync.WithSyncMetrics(syncMetrics),
			pkgsync.WithBuilderOptions(
				hierarchy.WithSequencingFacility(project.GetSequencingFacility()),
				hierarchy.WithPipeline(project.GetPipeline()),
			),
		), nil
	}, nil
}

func buildCoordinator(cfg *syncAppConfig, components *AppComponents) (coordinator.Coordinator, error) {
	poolMetrics, err := telemetry.NewPoolMetrics(cfg.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool metrics: %w", err)
	}

	workers := cfg.config.Workers
	return coordinator.New(
		coordinator.Config{
			Workers:      workers.GetCount(),
			QueueTimeout: workers.GetQueueTimeout(),
		},
		components.Sessions,
		components.Managers,
		coordinator.WithHandler(cfg.handler),
		coordinator.WithLogLevel(cfg.level),
		coordinator.WithRunID(cfg.runID),
		coordinator.WithTracer(tracer(cfg)),
		coordinator.WithPoolMetrics(poolMetrics),
	), nil
}

func tracer(cfg *syncAppConfig) trace.Tracer {
	if cfg.tracerProvider == nil {
		return nil
	}
	return cfg.tracerProvider.Tracer(TracerName)
}
