package observability

import (
	"context"
	stderrors "errors"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/kbuild/validation"
)

// Config configures telemetry export.
type Config struct {
	// Enabled turns on OTLP export of traces and metrics.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills the endpoint, sample rate and export interval.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Providers holds the SDK providers installed by Setup.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Setup installs tracer and meter providers when cfg.Enabled. With
// telemetry disabled it returns empty Providers and leaves the global
// no-op providers in place.
func Setup(ctx context.Context, cfg Config, serviceName, serviceVersion string) (*Providers, error) {
	p := &Providers{}
	if !cfg.Enabled {
		return p, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, &TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		SampleRate:     cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	p.Tracer = tp

	mp, err := InitMeter(ctx, &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		Interval:       cfg.Interval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.Meter = mp
	return p, nil
}

// Shutdown flushes and stops the installed providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	return stderrors.Join(errs...)
}
