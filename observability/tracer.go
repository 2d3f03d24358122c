package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/kbuild/logger"
)

const defaultTracerName = "github.com/kbukum/kbuild/observability"

// TracerConfig configures the OpenTelemetry tracer.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows plain HTTP.
	Insecure bool
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64
}

// DefaultTracerConfig returns defaults for a local collector.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// InitTracer initializes the OpenTelemetry tracer provider.
// Returns a TracerProvider that should be shut down on exit.
func InitTracer(ctx context.Context, config *TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug("tracer initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"sample_rate", config.SampleRate,
	))

	return tp, nil
}

// newResource describes this process. The attributes are schemaless so the
// merge with resource.Default never conflicts on schema URLs.
func newResource(serviceName, serviceVersion string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String(AttrServiceName, serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span using the default tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(defaultTracerName).Start(ctx, name, opts...)
}

// SpanFromContext returns the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanAttribute sets an attribute on the current span in context.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}

// SetSpanError records an error on the current span in context.
func SetSpanError(ctx context.Context, err error) {
	span := SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
}

// Span names.
const (
	SpanBuild = "kbuild.build"
	SpanStage = "kbuild.stage"
	SpanClean = "kbuild.clean"
	SpanRun   = "kbuild.run"
)

// Attribute keys.
const (
	AttrServiceName  = "service.name"
	AttrBuildID      = "build.id"
	AttrProject      = "build.project"
	AttrStage        = "stage.name"
	AttrStageKind    = "stage.kind"
	AttrDurationMs   = "duration_ms"
	AttrStatus       = "status"
	AttrErrorMessage = "error.message"
)
