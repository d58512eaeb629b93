package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NationalGenomicsInfrastructure/acheron/pkg/versions"
)

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	empty := &Config{}
	assert.Equal(t, DefaultServiceName, empty.GetServiceName())
	assert.Equal(t, versions.GetVersionInfo().Version, empty.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, empty.GetEndpoint())
	assert.False(t, empty.GetInsecure())

	set := &Config{
		ServiceName:    "acheron-test",
		ServiceVersion: "1.2.3",
		Endpoint:       "collector.example.com:4318",
		Insecure:       true,
	}
	assert.Equal(t, "acheron-test", set.GetServiceName())
	assert.Equal(t, "1.2.3", set.GetServiceVersion())
	assert.Equal(t, "collector.example.com:4318", set.GetEndpoint())
	assert.True(t, set.GetInsecure())
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sampling float64
		expected float64
	}{
		{name: "unset uses default", sampling: 0, expected: DefaultSampling},
		{name: "configured", sampling: 0.5, expected: 0.5},
		{name: "always", sampling: 1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, (&TracingConfig{Sampling: tt.sampling}).GetSampling())
		})
	}
}

func TestMetricsConfig_Getters(t *testing.T) {
	t.Parallel()

	empty := &MetricsConfig{}
	assert.Equal(t, ExporterOTLP, empty.GetExporter())
	assert.Equal(t, DefaultPushJob, empty.GetJob())

	set := &MetricsConfig{Exporter: ExporterPushgateway, Job: "acheron-nightly"}
	assert.Equal(t, ExporterPushgateway, set.GetExporter())
	assert.Equal(t, "acheron-nightly", set.GetJob())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config", config: nil},
		{name: "disabled skips validation", config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 5}}},
		{
			name:   "valid otlp",
			config: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 0.1}, Metrics: &MetricsConfig{Enabled: true}},
		},
		{
			name:    "sampling out of range",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: "tracing: sampling must be between",
		},
		{
			name:    "negative sampling",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			wantErr: "tracing: sampling must be between",
		},
		{
			name: "valid pushgateway",
			config: &Config{Enabled: true, Metrics: &MetricsConfig{
				Enabled: true, Exporter: ExporterPushgateway, PushgatewayURL: "http://pushgateway:9091",
			}},
		},
		{
			name:    "pushgateway without URL",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPushgateway}},
			wantErr: "metrics: pushgatewayURL is required",
		},
		{
			name: "pushgateway with invalid URL",
			config: &Config{Enabled: true, Metrics: &MetricsConfig{
				Enabled: true, Exporter: ExporterPushgateway, PushgatewayURL: "not a url",
			}},
			wantErr: "invalid pushgatewayURL",
		},
		{
			name:    "unknown exporter",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: `unknown exporter "statsd"`,
		},
		{
			name:   "disabled metrics ignore exporter",
			config: &Config{Enabled: true, Metrics: &MetricsConfig{Exporter: "statsd"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
