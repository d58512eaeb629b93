package telemetry

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the Charon client tracer
	TracerName = "github.com/NationalGenomicsInfrastructure/acheron/http"
)

// TracingTransport wraps next so that every request runs in a client span and
// carries W3C trace context headers.
// If provider is nil, next is returned unchanged.
func TracingTransport(provider trace.TracerProvider, next http.RoundTripper) http.RoundTripper {
	if provider == nil {
		return next
	}

	tracer := provider.Tracer(TracerName)

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+Resource(r.URL.Path),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.ServerAddress(r.URL.Hostname()),
			),
		)
		defer span.End()

		r = r.Clone(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(r.Header))

		resp, err := next.RoundTrip(r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
		// 404 is an expected answer on the create path
		if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return resp, nil
	})
}
