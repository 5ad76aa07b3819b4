package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "promptforge"

// StartBackendSpan starts a span for a prompt backend operation.
func StartBackendSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "backend."+op,
		trace.WithAttributes(attribute.String("backend.op", op)),
	)
}

// StartActivationSpan starts a span for activating a composition.
func StartActivationSpan(ctx context.Context, compositionID int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "composition.activate",
		trace.WithAttributes(attribute.Int("composition.id", compositionID)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
