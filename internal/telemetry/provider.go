// Package telemetry traces planguard runs with OpenTelemetry. Spans are
// exported over OTLP/HTTP only when an endpoint is configured.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// installed is the provider of the current run.
var installed struct {
	mu       sync.RWMutex
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

func noShutdown(context.Context) error { return nil }

// InitProvider installs the tracer provider described by cfg, process-wide
// and as the otel global, and returns its shutdown function. Shutdown
// flushes spans still queued for export.
func InitProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		install(noop.NewTracerProvider(), noShutdown)
		return noShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithOS(),
		resource.WithProcessRuntimeDescription(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	}
	// Without an endpoint spans are sampled and dropped.
	if cfg.Endpoint != "" {
		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	install(tp, tp.Shutdown)
	return tp.Shutdown, nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate > 0 && rate < 1.0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
	return sdktrace.AlwaysSample()
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return newRetryingExporter(exporter), nil
}

func install(tp trace.TracerProvider, shutdown func(context.Context) error) {
	installed.mu.Lock()
	installed.provider = tp
	installed.shutdown = shutdown
	installed.mu.Unlock()
	otel.SetTracerProvider(tp)
}

// Shutdown shuts down the installed provider. It is safe to call more than
// once.
func Shutdown(ctx context.Context) error {
	installed.mu.RLock()
	shutdown := installed.shutdown
	installed.mu.RUnlock()

	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}

// GetTracerProvider returns the installed provider, or a noop provider
// before InitProvider runs.
func GetTracerProvider() trace.TracerProvider {
	installed.mu.RLock()
	defer installed.mu.RUnlock()

	if installed.provider == nil {
		return noop.NewTracerProvider()
	}
	return installed.provider
}
