// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry"

type httpInstruments struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMiddleware returns a chi middleware that opens a server span per
// request and records request count, latency and in-flight requests by route.
func NewHTTPMiddleware(tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) func(http.Handler) http.Handler {
	meter := meterProvider.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; the noop fallbacks
	// returned alongside the error are safe to use.
	requests, _ := meter.Int64Counter("vidtool_http_requests",
		metric.WithDescription("HTTP requests served"))
	latency, _ := meter.Float64Histogram("vidtool_http_request_duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"))
	inFlight, _ := meter.Int64UpDownCounter("vidtool_http_active_requests",
		metric.WithDescription("HTTP requests being served"))

	in := &httpInstruments{
		tracer:   tracerProvider.Tracer(instrumentationName),
		requests: requests,
		latency:  latency,
		inFlight: inFlight,
	}
	return in.wrap
}

func (in *httpInstruments) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		ctx, span := in.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		// chi fills in the pattern while routing.
		route := routePattern(r)
		span.SetName(r.Method + " " + route)
		span.SetAttributes(attribute.String("http.route", route), attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}

		labels := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("status_code", strconv.Itoa(rec.status)),
		)
		in.requests.Add(ctx, 1, labels)
		in.latency.Record(ctx, time.Since(started).Seconds(), labels)
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

// statusRecorder remembers the first status code sent to the client.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(data []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(data)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
