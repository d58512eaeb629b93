// Package telemetry provides OpenTelemetry instrumentation for acheron.
// It supports configurable tracing over OTLP and metrics exported either over
// OTLP or to a Prometheus pushgateway at the end of a run.
package telemetry

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/NationalGenomicsInfrastructure/acheron/pkg/versions"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "acheron"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate (5%)
	DefaultSampling = 0.05

	// DefaultPushJob is the job label used when pushing to a pushgateway
	DefaultPushJob = "acheron"
)

// Metrics exporters
const (
	ExporterOTLP        = "otlp"
	ExporterPushgateway = "pushgateway"
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// ServiceName defaults to "acheron"
	ServiceName string `yaml:"serviceName,omitempty" mapstructure:"serviceName"`

	// ServiceVersion defaults to the application version
	ServiceVersion string `yaml:"serviceVersion,omitempty" mapstructure:"serviceVersion"`

	// Endpoint is the OTLP collector endpoint ("host:port")
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// Insecure allows HTTP connections instead of HTTPS
	Insecure bool `yaml:"insecure,omitempty" mapstructure:"insecure"`

	Tracing *TracingConfig `yaml:"tracing,omitempty" mapstructure:"tracing"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" mapstructure:"metrics"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Sampling controls the trace sampling rate (0.0 to 1.0)
	Sampling float64 `yaml:"sampling,omitempty" mapstructure:"sampling"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Exporter is "otlp" (default) or "pushgateway"
	Exporter string `yaml:"exporter,omitempty" mapstructure:"exporter"`

	// PushgatewayURL is required with the pushgateway exporter
	PushgatewayURL string `yaml:"pushgatewayURL,omitempty" mapstructure:"pushgatewayURL"`

	// Job is the pushgateway job label, defaults to "acheron"
	Job string `yaml:"job,omitempty" mapstructure:"job"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, defaulting to the build version
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return versions.GetVersionInfo().Version
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetInsecure returns the insecure flag
func (c *Config) GetInsecure() bool {
	return c.Insecure
}

// GetSampling returns the sampling ratio.
// 0 means unset and yields DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExporter returns the metrics exporter, defaulting to OTLP
func (c *MetricsConfig) GetExporter() string {
	if c.Exporter == "" {
		return ExporterOTLP
	}
	return c.Exporter
}

// GetJob returns the pushgateway job label
func (c *MetricsConfig) GetJob() string {
	if c.Job == "" {
		return DefaultPushJob
	}
	return c.Job
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error

	if c.Tracing != nil {
		if err := c.Tracing.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Validate validates the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}

	return nil
}

// Validate validates the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	switch c.GetExporter() {
	case ExporterOTLP:
		return nil
	case ExporterPushgateway:
		if c.PushgatewayURL == "" {
			return errors.New("pushgatewayURL is required for the pushgateway exporter")
		}
		if _, err := url.ParseRequestURI(c.PushgatewayURL); err != nil {
			return fmt.Errorf("invalid pushgatewayURL %q: %w", c.PushgatewayURL, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown exporter %q", c.Exporter)
	}
}
