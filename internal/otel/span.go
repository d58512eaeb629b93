// Package otel provides OpenTelemetry tracing helpers shared by the sync.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for business context used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrProjectID   = attribute.Key("project.id")
	AttrSampleID    = attribute.Key("sample.id")
	AttrDoctype     = attribute.Key("document.doctype")
	AttrDocumentID  = attribute.Key("document.id")
	AttrOutcome     = attribute.Key("document.outcome")
	AttrWorkerID    = attribute.Key("worker.id")
	AttrResultCount = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description stays generic so SQL and API tokens never end up in
// span status; the full error is still attached as a span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
