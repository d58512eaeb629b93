// Package logging builds the slog handlers used by acheron.
//
// The main handler writes JSON records to stderr or to a rotating log file.
// Workers do not write to it directly: they log through a ChannelHandler and
// the coordinator replays their records on the main handler, so a single
// goroutine owns the sink.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings of the log file
const (
	MaxLogSizeMB  = 200
	MaxLogBackups = 5
)

// TraceHandler wraps an slog.Handler to inject OpenTelemetry trace_id and
// span_id into every record logged inside a span.
type TraceHandler struct {
	slog.Handler
}

// NewTraceHandler wraps h
func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

// Handle implements slog.Handler
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler
func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// NewSink opens the log destination. An empty path means stderr, anything
// else a file rotated at MaxLogSizeMB keeping MaxLogBackups old files.
func NewSink(path string) io.WriteCloser {
	if path == "" {
		return nopCloser{Writer: os.Stderr}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxLogSizeMB,
		MaxBackups: MaxLogBackups,
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NewHandler returns the main JSON handler writing to w
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return NewTraceHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
