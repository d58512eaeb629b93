package telemetry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HTTPMetricsMeterName is the name used for the Charon request meter
	HTTPMetricsMeterName = "github.com/NationalGenomicsInfrastructure/acheron/http"

	unknownResource = "unknown"
)

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// HTTPMetrics holds the OpenTelemetry instruments for outgoing Charon requests
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics creates a new HTTPMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HTTPMetricsMeterName)

	requestDuration, err := meter.Float64Histogram(
		"acheron_charon_request_duration_seconds",
		metric.WithDescription("Duration of Charon requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"acheron_charon_requests_total",
		metric.WithDescription("Total number of Charon requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"acheron_charon_active_requests",
		metric.WithDescription("Number of in-flight Charon requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		activeRequests:  activeRequests,
	}, nil
}

// RoundTripper wraps next so that every request is measured.
// If HTTPMetrics is nil, next is returned unchanged.
func (m *HTTPMetrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if m == nil {
		return next
	}

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		ctx := r.Context()
		start := time.Now()

		m.activeRequests.Add(ctx, 1)
		resp, err := next.RoundTrip(r)
		m.activeRequests.Add(ctx, -1)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("resource", Resource(r.URL.Path)),
			attribute.String("status_code", status),
		)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requestsTotal.Add(ctx, 1, attrs)

		return resp, err
	})
}

// Resource returns the Charon resource addressed by path, e.g. "sample" for
// "/api/v1/sample/P1/P1_101". Keys are dropped to bound cardinality.
func Resource(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return unknownResource
	}
	resource, _, _ := strings.Cut(rest, "/")
	if resource == "" {
		return unknownResource
	}
	return resource
}

// InstrumentTransport wraps base with tracing and metrics. Nil providers
// disable the corresponding layer.
func InstrumentTransport(base http.RoundTripper, tp trace.TracerProvider, mp metric.MeterProvider) (http.RoundTripper, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	metrics, err := NewHTTPMetrics(mp)
	if err != nil {
		return nil, err
	}
	return TracingTransport(tp, metrics.RoundTripper(base)), nil
}
