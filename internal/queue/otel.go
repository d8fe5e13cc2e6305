package queue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// otlpContextFrom extracts ctx's current trace context into the
// carrier map spec §6 calls "otlp_context", using the same W3C
// TraceContext propagator the telemetry package installs globally.
// Returns nil (omitted from the marshalled descriptor) if ctx carries
// no span.
func otlpContextFrom(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return map[string]string(carrier)
}

// ContextWithOTLPContext rehydrates a worker-side context.Context from a
// job descriptor's otlp_context, so the processing span created inside
// the worker becomes a child of the span that called Enqueue.
func ContextWithOTLPContext(ctx context.Context, otlpContext map[string]string) context.Context {
	if len(otlpContext) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(otlpContext))
}
