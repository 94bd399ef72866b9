package networking

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPError is a non-2xx answer from an upstream Microsoft API.
type HTTPError struct {
	StatusCode int
	// Body is the response body truncated to DefaultErrorPreviewSize.
	Body string
	URL  string
	// RequestID is the service request-id header, when returned.
	RequestID string
	// RetryAfter is set when a throttled response asks the caller to wait.
	RetryAfter time.Duration
}

// NewHTTPError creates an HTTPError, truncating the body preview.
func NewHTTPError(statusCode int, url string, body []byte) *HTTPError {
	preview := string(body)
	if len(preview) > DefaultErrorPreviewSize {
		preview = preview[:DefaultErrorPreviewSize]
	}
	return &HTTPError{StatusCode: statusCode, Body: preview, URL: url}
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s returned %d", e.URL, e.StatusCode)
	if m := e.Message(); m != "" {
		msg += ": " + m
	}
	if e.RequestID != "" {
		msg += " (request-id " + e.RequestID + ")"
	}
	return msg
}

// Message returns the error message from a Microsoft-style JSON error body
// ({"error":{"code","message"}} or OAuth's error_description), if present.
func (e *HTTPError) Message() string {
	for _, path := range []string{"error.message", "error_description", "message"} {
		if r := gjson.Get(e.Body, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}

// Field returns a value at a gjson path in the body.
func (e *HTTPError) Field(path string) gjson.Result {
	return gjson.Get(e.Body, path)
}

// Details returns the body as raw JSON when it is valid JSON, otherwise as a string.
func (e *HTTPError) Details() any {
	if e.Body == "" {
		return nil
	}
	if json.Valid([]byte(e.Body)) {
		return json.RawMessage(e.Body)
	}
	return e.Body
}

// AsHTTPError extracts an *HTTPError from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsHTTPError checks if an error is an HTTPError with the specified status code.
// If statusCode is 0, it matches any HTTPError.
func IsHTTPError(err error, statusCode int) bool {
	httpErr, ok := AsHTTPError(err)
	if !ok {
		return false
	}
	if statusCode == 0 {
		return true
	}
	return httpErr.StatusCode == statusCode
}
