package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is grainstate's instrumentation scope name.
const tracerName = "github.com/fluxorio/grainstate"

// Tracer returns grainstate's tracer. Hosts that configure their own otel
// TracerProvider via otel.SetTracerProvider before grainstate starts firing
// entities get spans exported through it; otherwise this reaches the
// no-op provider the otel SDK defaults to.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// NewStdoutTracerProvider builds a TracerProvider that writes spans to
// stdout, for local development and the cmd/example demo — grounded on
// the otel SDK's own stdouttrace exporter rather than a hosted backend,
// since this package implements no tracing backend of its own.
func NewStdoutTracerProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return tp, nil
}

// StartFireSpan opens the grainstate.actor.fire span spec.md 4.E's
// ambient-stack addition names, carrying entity/trigger/from/to attributes.
func StartFireSpan(ctx context.Context, entityID, trigger string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "grainstate.actor.fire",
		trace.WithAttributes(
			attribute.String("grainstate.entity_id", entityID),
			attribute.String("grainstate.trigger", trigger),
		),
	)
}

// EndFireSpan annotates and closes a Fire span with the resulting
// transition (or error).
func EndFireSpan(span trace.Span, from, to string, err error) {
	span.SetAttributes(
		attribute.String("grainstate.from", from),
		attribute.String("grainstate.to", to),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartSagaStepSpan opens a per-step span under a saga run.
func StartSagaStepSpan(ctx context.Context, sagaName, step string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "grainstate.saga.step",
		trace.WithAttributes(
			attribute.String("grainstate.saga", sagaName),
			attribute.String("grainstate.step", step),
		),
	)
}

// EndSagaStepSpan annotates and closes a saga step span with its terminal
// status.
func EndSagaStepSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("grainstate.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
