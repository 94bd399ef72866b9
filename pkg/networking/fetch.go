package networking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxResponseSize bounds the response bodies read from Microsoft APIs.
	DefaultMaxResponseSize = 1 << 20

	// DefaultErrorPreviewSize bounds the body kept on an HTTPError.
	DefaultErrorPreviewSize = 4096

	// ContentTypeJSON is the JSON media type.
	ContentTypeJSON = "application/json"

	// HeaderClientRequestID carries the caller generated correlation id.
	// Entra ID, Graph and the Verified ID services echo it in their logs.
	HeaderClientRequestID = "client-request-id"
	// HeaderRequestID is the service side id to quote in support requests.
	HeaderRequestID = "request-id"
)

// FetchResult is a decoded 2xx response.
type FetchResult[T any] struct {
	Data       T
	Raw        json.RawMessage
	StatusCode int
	// RequestID is the service request-id header, when returned.
	RequestID string
}

// FetchOption configures a FetchJSON call.
type FetchOption func(*fetchRequest)

type fetchRequest struct {
	method  string
	header  http.Header
	body    []byte
	bodyErr error
}

// WithMethod sets the HTTP method. The default is GET.
func WithMethod(method string) FetchOption {
	return func(r *fetchRequest) { r.method = method }
}

// WithBearerToken authenticates the call with an access token.
func WithBearerToken(token string) FetchOption {
	return func(r *fetchRequest) { r.header.Set("Authorization", "Bearer "+token) }
}

// WithClientRequestID sets the correlation id instead of generating one.
func WithClientRequestID(id string) FetchOption {
	return func(r *fetchRequest) { r.header.Set(HeaderClientRequestID, id) }
}

// WithJSONBody sends v encoded as JSON.
func WithJSONBody(v any) FetchOption {
	return func(r *fetchRequest) {
		data, err := json.Marshal(v)
		if err != nil {
			r.bodyErr = fmt.Errorf("failed to marshal request body: %w", err)
			return
		}
		r.body = data
		r.header.Set("Content-Type", ContentTypeJSON)
	}
}

// FetchJSON calls requestURL and decodes a JSON response into T.
// Non-2xx responses are returned as *HTTPError. A 2xx response without a
// body yields the zero T.
func FetchJSON[T any](ctx context.Context, client HTTPClient, requestURL string, opts ...FetchOption) (*FetchResult[T], error) {
	fr := &fetchRequest{method: http.MethodGet, header: make(http.Header)}
	fr.header.Set("Accept", ContentTypeJSON)
	for _, opt := range opts {
		opt(fr)
	}
	if fr.bodyErr != nil {
		return nil, fr.bodyErr
	}
	if fr.header.Get(HeaderClientRequestID) == "" {
		fr.header.Set(HeaderClientRequestID, uuid.NewString())
	}

	var body io.Reader
	if fr.body != nil {
		body = bytes.NewReader(fr.body)
	}
	req, err := http.NewRequestWithContext(ctx, fr.method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = fr.header

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", requestURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	requestID := resp.Header.Get(HeaderRequestID)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		httpErr := NewHTTPError(resp.StatusCode, requestURL, raw)
		httpErr.RequestID = requestID
		httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, httpErr
	}

	result := &FetchResult[T]{StatusCode: resp.StatusCode, RequestID: requestID}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != ContentTypeJSON {
		return nil, fmt.Errorf("unexpected content type %q from %s", resp.Header.Get("Content-Type"), requestURL)
	}
	if err := json.Unmarshal(raw, &result.Data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	result.Raw = raw
	return result, nil
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
