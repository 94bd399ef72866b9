package issuance

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client submits issuance requests to the Verified ID Request Service.
type Client interface {
	// CreateIssuanceRequest posts payload to endpoint. Non-2xx responses are
	// returned as *networking.HTTPError so callers can classify them.
	CreateIssuanceRequest(
		ctx context.Context, endpoint, accessToken string, payload *contracts.Payload,
	) (*CreateResponse, error)
}

// CreateResponse is the Request Service answer to createIssuanceRequest.
type CreateResponse struct {
	RequestID string `json:"requestId"`
	URL       string `json:"url"`
	Expiry    int64  `json:"expiry"`

	// Raw is the unparsed response body.
	Raw json.RawMessage `json:"-"`
}

// RequestServiceClient is the HTTP implementation of Client.
type RequestServiceClient struct {
	httpClient networking.HTTPClient
}

// NewRequestServiceClient returns a Client that uses httpClient, or a
// default client when httpClient is nil.
func NewRequestServiceClient(httpClient networking.HTTPClient) *RequestServiceClient {
	if httpClient == nil {
		httpClient = networking.NewHTTPClient()
	}
	return &RequestServiceClient{httpClient: httpClient}
}

// CreateIssuanceRequest implements Client.
func (c *RequestServiceClient) CreateIssuanceRequest(
	ctx context.Context, endpoint, accessToken string, payload *contracts.Payload,
) (*CreateResponse, error) {
	res, err := networking.FetchJSON[CreateResponse](ctx, c.httpClient, endpoint,
		networking.WithMethod(http.MethodPost),
		networking.WithBearerToken(accessToken),
		networking.WithJSONBody(payload),
	)
	if err != nil {
		return nil, err
	}
	resp := res.Data
	resp.Raw = res.Raw
	return &resp, nil
}
