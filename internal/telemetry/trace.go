package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

const instrumentation = "github.com/felixgeelhaar/planguard"

func start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracerProvider().Tracer(instrumentation).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}

// StartCommandSpan starts the root span of a CLI invocation:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "apply")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	return start(ctx, "command."+cmdName, trace.SpanKindInternal,
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)
}

// StartApplySpan starts the span covering one apply run.
func StartApplySpan(ctx context.Context, txID string, steps int, dryRun bool) (context.Context, trace.Span) {
	return start(ctx, "apply", trace.SpanKindInternal,
		attribute.String("tx_id", txID),
		attribute.Int("steps", steps),
		attribute.Bool("dry_run", dryRun),
		attribute.String("component", "apply"),
	)
}

// StartStepSpan starts the span of one plan step. index is zero-based; the
// recorded step number is not.
func StartStepSpan(ctx context.Context, index int, stepID, action string) (context.Context, trace.Span) {
	return start(ctx, "step."+action, trace.SpanKindInternal,
		attribute.Int("step", index+1),
		attribute.String("step_id", stepID),
		attribute.String("action", action),
	)
}

// StartExecSpan starts the span of a spawned process.
func StartExecSpan(ctx context.Context, command, cwd string) (context.Context, trace.Span) {
	return start(ctx, "exec", trace.SpanKindClient,
		attribute.String("exec.command", command),
		attribute.String("exec.cwd", cwd),
	)
}

// RecordSuccess sets attrs and marks span ok.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError marks span failed. Coded errors also set error.code and
// error.kind.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if coded, ok := errors.As(err); ok {
		span.SetAttributes(
			attribute.String("error.code", string(coded.Code)),
			attribute.String("error.kind", string(coded.Code.Kind())),
		)
	}
}

// RecordDuration sets a <name>_ms attribute.
func RecordDuration(span trace.Span, name string, d time.Duration) {
	span.SetAttributes(attribute.Int64(name+"_ms", d.Milliseconds()))
}
