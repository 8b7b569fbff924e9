// Package otel sets up OpenTelemetry tracing for the HTTP layer, the event
// bus and navigation transitions.
package otel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/fluxorio/mtp"

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
)

// Initialize installs the global tracer provider and propagator. With the
// "none" exporter it only installs the propagator.
func Initialize(ctx context.Context, config Config) error {
	return initialize(ctx, config, nil)
}

func initialize(ctx context.Context, config Config, stdout io.Writer) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid OpenTelemetry config: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if provider != nil {
		return fmt.Errorf("OpenTelemetry already initialized")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := newExporter(config, stdout)
	if err != nil {
		return err
	}
	if exporter == nil {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
			attribute.String("deployment.environment", config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Tracer returns the service tracer, a noop tracer until Initialize
// installed an exporter
func Tracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if provider == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return provider.Tracer(instrumentationName)
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// IsInitialized returns whether a tracer provider is installed
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return provider != nil
}

// Shutdown flushes and stops the tracer provider
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	provider = nil
	otel.SetTracerProvider(noop.NewTracerProvider())
	return err
}
