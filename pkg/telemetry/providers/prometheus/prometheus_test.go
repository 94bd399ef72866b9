package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewReader_RuntimeCollectors(t *testing.T) {
	t.Parallel()

	_, withRuntime, err := NewReader(Config{IncludeRuntimeMetrics: true})
	require.NoError(t, err)
	assert.Contains(t, scrape(t, withRuntime), "go_goroutines")

	_, bare, err := NewReader(Config{})
	require.NoError(t, err)
	assert.NotContains(t, scrape(t, bare), "go_goroutines")
}

func TestNewReader_ExportsIssuanceCounter(t *testing.T) {
	t.Parallel()

	reader, handler, err := NewReader(Config{})
	require.NoError(t, err)

	ctx := context.Background()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	issued, err := mp.Meter("issuance").Int64Counter("vidtool_issuance_requests")
	require.NoError(t, err)
	issued.Add(ctx, 2)

	assert.Regexp(t, `(?m)^vidtool_issuance_requests_total(\{[^}]*\})? 2$`, scrape(t, handler))
}
