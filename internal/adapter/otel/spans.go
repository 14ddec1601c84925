package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "llm-council"

// StartDeliberationSpan starts the root span for one deliberation.
func StartDeliberationSpan(ctx context.Context, deliberationID, tier string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "deliberation",
		trace.WithAttributes(
			attribute.String("deliberation.id", deliberationID),
			attribute.String("deliberation.tier", tier),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage. fanout is the number
// of model calls the stage issues.
func StartStageSpan(ctx context.Context, stage string, fanout int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage."+stage,
		trace.WithAttributes(
			attribute.String("stage.name", stage),
			attribute.Int("stage.fanout", fanout),
		),
	)
}
