package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the per-project sync meter
	SyncMetricsMeterName = "github.com/NationalGenomicsInfrastructure/acheron/sync"

	// PoolMetricsMeterName is the name used for the worker pool meter
	PoolMetricsMeterName = "github.com/NationalGenomicsInfrastructure/acheron/coordinator"
)

// SyncMetrics holds the OpenTelemetry instruments for project sync metrics
type SyncMetrics struct {
	projectDuration metric.Float64Histogram
	documentsPushed metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	projectDuration, err := meter.Float64Histogram(
		"acheron_project_sync_duration_seconds",
		metric.WithDescription("Duration of one project sync in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	documentsPushed, err := meter.Int64Counter(
		"acheron_documents_pushed_total",
		metric.WithDescription("Documents pushed to Charon by doctype and outcome"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		projectDuration: projectDuration,
		documentsPushed: documentsPushed,
	}, nil
}

// RecordProjectSync records the duration of one project sync
func (m *SyncMetrics) RecordProjectSync(ctx context.Context, projectID string, duration time.Duration, success bool) {
	if m == nil || m.projectDuration == nil {
		return
	}

	m.projectDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("project", projectID),
		attribute.Bool("success", success),
	))
}

// RecordDocumentPushed counts one pushed document
func (m *SyncMetrics) RecordDocumentPushed(ctx context.Context, doctype, outcome string) {
	if m == nil || m.documentsPushed == nil {
		return
	}

	m.documentsPushed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("doctype", doctype),
		attribute.String("outcome", outcome),
	))
}

// PoolMetrics holds the OpenTelemetry instruments for the worker pool
type PoolMetrics struct {
	activeWorkers metric.Int64UpDownCounter
	projects      metric.Int64Counter
}

// NewPoolMetrics creates a new PoolMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewPoolMetrics(provider metric.MeterProvider) (*PoolMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(PoolMetricsMeterName)

	activeWorkers, err := meter.Int64UpDownCounter(
		"acheron_workers_active",
		metric.WithDescription("Number of running sync workers"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return nil, err
	}

	projects, err := meter.Int64Counter(
		"acheron_projects_synced_total",
		metric.WithDescription("Projects processed by the worker pool"),
		metric.WithUnit("{project}"),
	)
	if err != nil {
		return nil, err
	}

	return &PoolMetrics{
		activeWorkers: activeWorkers,
		projects:      projects,
	}, nil
}

// WorkerStarted records a worker starting
func (m *PoolMetrics) WorkerStarted(ctx context.Context) {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Add(ctx, 1)
}

// WorkerStopped records a worker exiting
func (m *PoolMetrics) WorkerStopped(ctx context.Context) {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Add(ctx, -1)
}

// RecordProject counts one processed project
func (m *PoolMetrics) RecordProject(ctx context.Context, success bool) {
	if m == nil || m.projects == nil {
		return
	}
	m.projects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
