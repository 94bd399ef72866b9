package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry/providers"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry/providers/otlp"
)

// DefaultServiceName is the service name reported with traces and metrics.
const DefaultServiceName = "vid-issuing-tool"

// Config selects what the server exports.
type Config struct {
	ServiceName    string `json:"serviceName"`
	ServiceVersion string `json:"serviceVersion"`

	// Endpoint receives spans over OTLP/HTTP (host:port or URL).
	Endpoint       string            `json:"endpoint"`
	TracingEnabled bool              `json:"tracingEnabled"`
	SamplingRate   float64           `json:"samplingRate"`
	Headers        map[string]string `json:"headers"`

	// Insecure sends spans over plain HTTP when Endpoint has no scheme.
	Insecure bool `json:"insecure"`

	// EnablePrometheusMetricsPath serves the meter on /metrics.
	EnablePrometheusMetricsPath bool `json:"enablePrometheusMetricsPath"`
}

// DefaultConfig returns the configuration used by the server.
func DefaultConfig(version, endpoint string) Config {
	return Config{
		Endpoint:                    endpoint,
		ServiceName:                 DefaultServiceName,
		ServiceVersion:              version,
		TracingEnabled:              endpoint != "",
		SamplingRate:                1.0,
		Headers:                     make(map[string]string),
		EnablePrometheusMetricsPath: true,
	}
}

// Provider owns the exporters built from a Config.
type Provider struct {
	set *providers.Set
}

// NewProvider builds the exporters and installs them as the otel globals.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if config.SamplingRate < 0 || config.SamplingRate > 1 {
		return nil, fmt.Errorf("sampling rate must be between 0 and 1, got %v", config.SamplingRate)
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = "dev"
	}

	pc := providers.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Metrics:        config.EnablePrometheusMetricsPath,
	}
	if config.TracingEnabled {
		pc.Tracing = otlp.Config{
			Endpoint:     config.Endpoint,
			Headers:      config.Headers,
			Insecure:     config.Insecure,
			SamplingRate: config.SamplingRate,
		}
	}
	set, err := providers.Build(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry providers: %w", err)
	}

	otel.SetTracerProvider(set.Tracer)
	otel.SetMeterProvider(set.Meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{set: set}, nil
}

// Middleware returns an HTTP middleware that instruments requests.
func (p *Provider) Middleware() func(http.Handler) http.Handler {
	return NewHTTPMiddleware(p.set.Tracer, p.set.Meter)
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.set.Shutdown(ctx)
}

// TracerProvider returns the configured tracer provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.set.Tracer
}

// MeterProvider returns the configured meter provider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.set.Meter
}

// PrometheusHandler returns the /metrics handler, or nil when disabled.
func (p *Provider) PrometheusHandler() http.Handler {
	return p.set.Metrics
}
