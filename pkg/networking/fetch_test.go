package networking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contractPage struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func TestFetchJSON_GET(t *testing.T) {
	t.Parallel()

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get(HeaderClientRequestID))
		assert.NoError(t, err, "a correlation id is generated")

		w.Header().Set("Content-Type", "application/json;odata.metadata=minimal")
		w.Header().Set(HeaderRequestID, "svc-req-1")
		_, _ = w.Write([]byte(`{"value":[{"id":"c-1"},{"id":"c-2"}]}`))
	})

	res, err := FetchJSON[contractPage](context.Background(), server.Client(), server.URL, WithBearerToken("tok"))
	require.NoError(t, err)
	require.Len(t, res.Data.Value, 2)
	assert.Equal(t, "c-2", res.Data.Value[1].ID)
	assert.Equal(t, "svc-req-1", res.RequestID)
	assert.JSONEq(t, `{"value":[{"id":"c-1"},{"id":"c-2"}]}`, string(res.Raw))
}

func TestFetchJSON_POSTWithClientRequestID(t *testing.T) {
	t.Parallel()

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, "corr-1", r.Header.Get(HeaderClientRequestID))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"type":"VerifiedEmployee"}`, string(body))

		w.Header().Set("Content-Type", ContentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"requestId":"r-1"}`))
	})

	res, err := FetchJSON[map[string]string](context.Background(), server.Client(), server.URL,
		WithMethod(http.MethodPost),
		WithClientRequestID("corr-1"),
		WithJSONBody(map[string]string{"type": "VerifiedEmployee"}),
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "r-1", res.Data["requestId"])
}

func TestFetchJSON_EmptySuccess(t *testing.T) {
	t.Parallel()

	server := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := FetchJSON[contractPage](context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, res.Data.Value)
	assert.Nil(t, res.Raw)
}

func TestFetchJSON_ErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		status         int
		body           string
		retryAfter     string
		wantMessage    string
		wantRetryAfter time.Duration
	}{
		{
			name:        "graph style error",
			status:      http.StatusForbidden,
			body:        `{"error":{"code":"Authorization_RequestDenied","message":"Insufficient privileges"}}`,
			wantMessage: "Insufficient privileges",
		},
		{
			name:        "oauth style error",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret"}`,
			wantMessage: "AADSTS7000215: Invalid client secret",
		},
		{
			name:           "throttled",
			status:         http.StatusTooManyRequests,
			body:           `{"error":{"code":"TooManyRequests","message":"Too many requests"}}`,
			retryAfter:     "7",
			wantMessage:    "Too many requests",
			wantRetryAfter: 7 * time.Second,
		},
		{
			name:   "non json body",
			status: http.StatusNotFound,
			body:   `Not Found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(HeaderRequestID, "svc-err")
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := FetchJSON[contractPage](context.Background(), server.Client(), server.URL)
			require.Error(t, err)
			assert.True(t, IsHTTPError(err, tt.status))
			assert.True(t, IsHTTPError(err, 0))

			httpErr, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tt.body, httpErr.Body)
			assert.Equal(t, tt.wantMessage, httpErr.Message())
			assert.Equal(t, "svc-err", httpErr.RequestID)
			assert.Equal(t, tt.wantRetryAfter, httpErr.RetryAfter)
			assert.Contains(t, err.Error(), "request-id svc-err")
		})
	}
}

func TestFetchJSON_RejectsNonJSON(t *testing.T) {
	t.Parallel()

	server := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>sign in</html>`))
	})

	_, err := FetchJSON[contractPage](context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected content type")
	assert.False(t, IsHTTPError(err, 0))
}

func TestFetchJSON_TransportError(t *testing.T) {
	t.Parallel()

	_, err := FetchJSON[contractPage](context.Background(), http.DefaultClient, "http://127.0.0.1:1/contracts")
	require.Error(t, err)
	assert.False(t, IsHTTPError(err, 0))
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestFetchJSON_BadJSONBody(t *testing.T) {
	t.Parallel()

	_, err := FetchJSON[contractPage](context.Background(), http.DefaultClient, "http://127.0.0.1:1",
		WithJSONBody(make(chan int)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal")
}

func TestHTTPError_TruncatesBody(t *testing.T) {
	t.Parallel()

	err := NewHTTPError(http.StatusBadGateway, "https://example.com", []byte(strings.Repeat("x", DefaultErrorPreviewSize+10)))
	assert.Len(t, err.Body, DefaultErrorPreviewSize)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPError_Details(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewHTTPError(500, "u", nil).Details())
	assert.Equal(t, json.RawMessage(`{"error":"x"}`), NewHTTPError(500, "u", []byte(`{"error":"x"}`)).Details())
	assert.Equal(t, "<html>", NewHTTPError(502, "u", []byte(`<html>`)).Details())
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
