// Package networking holds the outbound HTTP plumbing shared by the
// upstream API clients.
package networking

import (
	"crypto/tls"
	"net/http"
	"time"
)

// HttpTimeout is the timeout for outgoing HTTP requests
const HttpTimeout = 30 * time.Second

// HTTPClient is the subset of *http.Client used by FetchJSON.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the client used for calls to the identity provider,
// Microsoft Graph and the Verified ID services.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ResponseHeaderTimeout = 20 * time.Second
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &http.Client{
		Transport: transport,
		Timeout:   HttpTimeout,
	}
}
