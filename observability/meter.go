package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/kbuild/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows plain HTTP.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the build instruments.
type Metrics struct {
	stageTotal    metric.Int64Counter
	stageDuration metric.Float64Histogram
	stageActive   metric.Int64UpDownCounter
	buildTotal    metric.Int64Counter
	buildDuration metric.Float64Histogram
	errorTotal    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	stageTotal, err := meter.Int64Counter("kbuild.stage.total",
		metric.WithDescription("Stages executed, by kind and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.stage.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("kbuild.stage.duration",
		metric.WithDescription("Duration of stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.stage.duration histogram: %w", err)
	}

	stageActive, err := meter.Int64UpDownCounter("kbuild.stage.active",
		metric.WithDescription("Number of stages currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.stage.active gauge: %w", err)
	}

	buildTotal, err := meter.Int64Counter("kbuild.build.total",
		metric.WithDescription("Builds executed, by project and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.build.total counter: %w", err)
	}

	buildDuration, err := meter.Float64Histogram("kbuild.build.duration",
		metric.WithDescription("Duration of builds in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.build.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("kbuild.error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kbuild.error.total counter: %w", err)
	}

	return &Metrics{
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		stageActive:   stageActive,
		buildTotal:    buildTotal,
		buildDuration: buildDuration,
		errorTotal:    errorTotal,
	}, nil
}

// RecordStageStart increments the running stage count.
func (m *Metrics) RecordStageStart(ctx context.Context) {
	m.stageActive.Add(ctx, 1)
}

// RecordStage decrements running stages and records a finished stage.
func (m *Metrics) RecordStage(ctx context.Context, kind, status string, duration time.Duration) {
	m.stageActive.Add(ctx, -1)
	m.stageTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordBuild records a finished build.
func (m *Metrics) RecordBuild(ctx context.Context, project, status string, duration time.Duration) {
	m.buildTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("project", project),
		attribute.String("status", status),
	))
	m.buildDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("project", project),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
