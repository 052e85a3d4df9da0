package telemetry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	exportMaxTries    = 5
	exportMaxElapsed  = 10 * time.Second
	exportInitialWait = 100 * time.Millisecond
	exportMaxWait     = 2 * time.Second
)

// retryingExporter retries failed span exports with exponential backoff.
// A collector that stays down costs at most exportMaxElapsed per batch.
type retryingExporter struct {
	next sdktrace.SpanExporter
}

func newRetryingExporter(next sdktrace.SpanExporter) *retryingExporter {
	return &retryingExporter{next: next}
}

func (e *retryingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = exportInitialWait
	policy.MaxInterval = exportMaxWait
	policy.Multiplier = 1.5

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, e.next.ExportSpans(ctx, spans)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(exportMaxTries),
		backoff.WithMaxElapsedTime(exportMaxElapsed),
	)
	return err
}

func (e *retryingExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}
