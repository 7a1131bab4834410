package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rfp-agilismo-backend"

// GetTracer returns the tracer for the evaluation service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartIntakeSpan starts a new span for solicitud intake.
func StartIntakeSpan(ctx context.Context, codigoProyecto, proveedor string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "solicitud.intake",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("solicitud.proyecto", codigoProyecto),
			attribute.String("solicitud.proveedor", proveedor),
		),
	)
}

// StartEvaluationSpan starts a new span for a background evaluation.
func StartEvaluationSpan(ctx context.Context, solicitudID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "solicitud.evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("solicitud.id", solicitudID)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, severity string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.severity", severity))
}
