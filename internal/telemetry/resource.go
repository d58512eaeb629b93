package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/NationalGenomicsInfrastructure/acheron/pkg/versions"
)

// Resource attributes identifying the build that produced a run
const (
	AttrBuildCommit = attribute.Key("acheron.build.commit")
	AttrBuildDate   = attribute.Key("acheron.build.date")
)

// NewRunResource describes one sync run. Every span and metric point of the
// run carries it, so the run id reported in the log can be found in both.
func NewRunResource(ctx context.Context, cfg *Config, runID string) (*resource.Resource, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	build := versions.GetVersionInfo()

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.GetServiceName()),
		semconv.ServiceVersion(cfg.GetServiceVersion()),
		AttrBuildCommit.String(build.Commit),
		AttrBuildDate.String(build.BuildDate),
	}
	if runID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(runID))
	}

	// resource.New rather than Merge(resource.Default()) keeps us clear of
	// schema URL conflicts between semconv versions
	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
