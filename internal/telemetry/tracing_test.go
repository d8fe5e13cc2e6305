package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitTracingIsNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected no-op shutdown to succeed, got %v", err)
	}
}

func TestInitTracingInstallsGlobalProviderWithEndpoint(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
	})

	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "roomhub-test",
	})
	if err != nil {
		t.Fatalf("expected no error building exporter, got %v", err)
	}
	defer shutdown(context.Background())

	tracer := otel.Tracer("roomhub-test")
	_, span := tracer.Start(context.Background(), "test-span")
	span.End()
}
