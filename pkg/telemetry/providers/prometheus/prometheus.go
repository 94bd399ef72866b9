// Package prometheus builds the Prometheus reader behind the /metrics endpoint.
package prometheus

import (
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config configures the Prometheus reader.
type Config struct {
	// IncludeRuntimeMetrics adds the go_* and process_* collectors.
	IncludeRuntimeMetrics bool
}

// NewReader returns a metric reader and the handler that serves its
// private registry.
func NewReader(cfg Config) (sdkmetric.Reader, http.Handler, error) {
	registry := promclient.NewRegistry()
	if cfg.IncludeRuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}
