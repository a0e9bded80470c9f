// Package telemetry sets up OpenTelemetry tracing and metrics for engramd.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP) to a collector when
// observability.enable_telemetry is set. Otherwise the global no-op
// providers are used and only the Prometheus /metrics endpoint of the HTTP
// API reports anything.
//
//	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Exporter failures degrade the instance instead of failing startup; see
// Health.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "datacore.learn")
//	span.End()
//	tt.AssertSpanExists(t, "datacore.learn")
package telemetry
