// Package telemetry provides OpenTelemetry-based observability for the
// issuance tool: a Prometheus /metrics endpoint, optional OTLP trace export,
// and HTTP server instrumentation.
package telemetry
