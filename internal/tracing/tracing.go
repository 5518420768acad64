// Package tracing wires an OpenTelemetry TracerProvider, modeled on the
// teacher's internal/observability/telemetry.go: an OTLP-over-HTTP exporter
// with a no-op fallback when disabled, one span per query operation.
// Tracing is opt-in — a nil *Tracer is always safe to use and starts
// no-op spans — so embedding the client never forces a collector
// dependency on a host application.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/mqi/internal/config"
)

// Tracer wraps the process-wide TracerProvider. The zero value (and a nil
// *Tracer) are safe no-ops: StartSpan still returns a usable span, it is
// simply never recorded.
type Tracer struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Init builds a Tracer from an ObservabilityConfig's TracingConfig. When
// cfg.Enabled is false it returns a Tracer backed by a noop provider and a
// shutdown func that does nothing.
func Init(ctx context.Context, cfg config.TracingConfig) (*Tracer, func(context.Context) error, error) {
	if !cfg.Enabled {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("mqi")}, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: create OTLP exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 && cfg.SampleRate >= 0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Tracer{tp: tp, tracer: tp.Tracer(cfg.ServiceName)}
	return t, t.shutdown, nil
}

func (t *Tracer) shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// StartSpan starts a span named "mqi.<op>" with the given attributes. A nil
// *Tracer starts a span against a package-level noop tracer so callers never
// need to nil-check before instrumenting a call site.
func (t *Tracer) StartSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := noopTracer
	if t != nil && t.tracer != nil {
		tracer = t.tracer
	}
	return tracer.Start(ctx, "mqi."+op, trace.WithAttributes(attrs...))
}

var noopTracer = trace.NewNoopTracerProvider().Tracer("mqi")

// EndWithError records err on span (if non-nil) and ends it.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
