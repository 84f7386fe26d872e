package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "interviewlab"

// StartRunSpan starts a span for one orchestrator operation on a run.
func StartRunSpan(ctx context.Context, op, runID, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "run."+op,
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.mode", mode),
		),
	)
}

// StartAgentSpan starts a span for a participant or evaluator call.
func StartAgentSpan(ctx context.Context, role, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.call",
		trace.WithAttributes(
			attribute.String("agent.role", role),
			attribute.String("agent.model", model),
		),
	)
}
