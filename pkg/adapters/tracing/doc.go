// Package tracing sets up OpenTelemetry tracing for graph-builder.
//
// Spans are exported over OTLP/gRPC when an endpoint is configured. Without
// an endpoint a no-op provider is used, but W3C trace context is still
// extracted from inbound requests so upstream trace ids are preserved in
// logs.
//
//	tracer, err := tracing.New(ctx, &tracing.Config{
//	    ServiceName: "graph-builder",
//	    Endpoint:    "otel-collector:4317",
//	    Insecure:    true,
//	    SampleRatio: 1,
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
