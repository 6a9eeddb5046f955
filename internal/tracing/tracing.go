// Package tracing wires OpenTelemetry spans around sync_exchange (the
// in-process DatabaseTarget; the HTTP adapter opens no spans of its own).
// The teacher repo carried only a test file for this
// package with no implementation to adapt; the exporter and span shape
// below are built to satisfy that test's contract, using the same
// jaeger/otel stack the teacher's go.mod already requires.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer builds a TracerProvider exporting to a Jaeger collector at
// endpoint, registers it as the global provider, and returns it so callers
// can Shutdown it on exit. The provider is returned even if endpoint is
// unreachable: jaeger.New only fails on malformed configuration, not on
// connection errors, which surface later on span export.
func InitTracer(serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

var tracerName = "github.com/kazade/syncdb"

// StartSpan starts a span named name under the global tracer provider,
// attaching attrs, and returns the derived context and span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
