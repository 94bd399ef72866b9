// Package otlp exports traces over OTLP/HTTP.
package otlp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config configures the trace exporter.
type Config struct {
	// Endpoint is host:port, or a full URL as found in OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint     string
	Headers      map[string]string
	Insecure     bool
	SamplingRate float64
}

func (c Config) exporterOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint)}
	if strings.Contains(c.Endpoint, "://") {
		opts = []otlptracehttp.Option{otlptracehttp.WithEndpointURL(c.Endpoint)}
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
	}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// NewTracerProvider returns a batching tracer provider exporting to cfg.Endpoint.
// Spans are sampled at cfg.SamplingRate unless the parent decided already.
func NewTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("otlp endpoint is required")
	}
	exporter, err := otlptracehttp.New(ctx, cfg.exporterOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter for %s: %w", cfg.Endpoint, err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	), nil
}
