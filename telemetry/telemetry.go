// Package telemetry defines the ambient logging, metrics, and tracing
// interfaces used throughout the consultation runtime. Concrete
// implementations adapt these to goa.design/clue/log and OpenTelemetry; the
// runtime itself depends only on these interfaces so a broken exporter can
// never fail a consultation.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured key-value log lines scoped to a context.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges for runtime instrumentation.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts and retrieves spans for the current execution.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is the subset of an OTEL span the runtime depends on.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}
)

// noop satisfies Logger, Metrics, and Tracer with zero-cost no-ops, used when
// a caller does not want to wire telemetry (tests, one-off tooling).
type noop struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noop{} }

// NewNoopMetrics returns a Metrics that discards everything.
func NewNoopMetrics() Metrics { return noop{} }

// NewNoopTracer returns a Tracer whose spans are all no-ops.
func NewNoopTracer() Tracer { return noop{} }

func (noop) Debug(context.Context, string, ...any) {}
func (noop) Info(context.Context, string, ...any)  {}
func (noop) Warn(context.Context, string, ...any)  {}
func (noop) Error(context.Context, string, ...any) {}

func (noop) IncCounter(string, float64, ...string)          {}
func (noop) RecordTimer(string, time.Duration, ...string)   {}
func (noop) RecordGauge(string, float64, ...string)         {}

func (noop) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (noop) Span(context.Context) Span { return noopSpan{} }

type noopSpan struct{}

func (noopSpan) End(...trace.SpanEndOption)                {}
func (noopSpan) AddEvent(string, ...any)                    {}
func (noopSpan) SetStatus(codes.Code, string)               {}
func (noopSpan) RecordError(error, ...trace.EventOption)    {}
