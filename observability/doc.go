// Package observability provides OpenTelemetry tracing and metrics for
// builds, plus health reports for the external toolchain.
//
// Telemetry is off unless enabled in configuration. When off, the global
// no-op providers stay installed and spans and instruments cost nothing.
//
//	p, err := observability.Setup(ctx, cfg.Telemetry, "kbuild", version.Short())
//	defer p.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanStage)
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("kbuild"))
//	metrics.RecordStage(ctx, "compile", "ok", duration)
package observability
