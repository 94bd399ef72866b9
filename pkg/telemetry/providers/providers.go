// Package providers assembles the tracer and meter providers of the server.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry/providers/otlp"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry/providers/prometheus"
)

// Config selects the exporters to build.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Traces go to Tracing.Endpoint when it is set.
	Tracing otlp.Config

	// Metrics enables the Prometheus registry served on /metrics.
	Metrics bool
}

// Set is the outcome of Build. The zero providers are no-ops.
type Set struct {
	Tracer  trace.TracerProvider
	Meter   metric.MeterProvider
	Metrics http.Handler

	closers []func(context.Context) error
}

// Build creates the providers described by cfg.
func Build(ctx context.Context, cfg Config) (*Set, error) {
	set := &Set{
		Tracer: tracenoop.NewTracerProvider(),
		Meter:  noop.NewMeterProvider(),
	}
	if cfg.Tracing.Endpoint == "" && !cfg.Metrics {
		logger.Info("telemetry disabled")
		return set, nil
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to describe service %s: %w", cfg.ServiceName, err)
	}

	if cfg.Metrics {
		reader, handler, err := prometheus.NewReader(prometheus.Config{IncludeRuntimeMetrics: true})
		if err != nil {
			return nil, err
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		set.Meter, set.Metrics = mp, handler
		set.closers = append(set.closers, mp.Shutdown)
	}

	if cfg.Tracing.Endpoint != "" {
		tp, err := otlp.NewTracerProvider(ctx, cfg.Tracing, res)
		if err != nil {
			return nil, err
		}
		set.Tracer = tp
		set.closers = append(set.closers, tp.Shutdown)
		logger.Infow("exporting traces", "endpoint", cfg.Tracing.Endpoint)
	}
	return set, nil
}

// Shutdown flushes and stops every exporter, reporting all failures.
func (s *Set) Shutdown(ctx context.Context) error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
