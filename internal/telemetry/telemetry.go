// Package telemetry sets up OpenTelemetry metrics for taskmcp.
// Metrics are exported in prometheus format and served on the /metrics endpoint.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Config holds the telemetry settings.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized otel providers.
// When telemetry is disabled, Meter is a no-op meter and Shutdown does nothing.
type Providers struct {
	Meter metric.Meter

	serviceName   string
	enabled       bool
	meterProvider *sdkmetric.MeterProvider
}

// Init initializes the otel meter provider with a prometheus exporter.
// The exporter registers itself with the default prometheus registry, so promhttp.Handler() serves the metrics.
func Init(ctx context.Context, c *Config) (*Providers, error) {
	p := &Providers{
		serviceName: c.ServiceName,
		enabled:     c.Enabled,
	}
	if !c.Enabled {
		p.Meter = noop.NewMeterProvider().Meter(c.ServiceName)
		return p, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(c.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.Meter = p.meterProvider.Meter(c.ServiceName)

	return p, nil
}

// IsEnabled returns true if metrics are being collected.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// ServiceName returns the name under which telemetry is reported.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the meter provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
