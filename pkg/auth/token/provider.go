// Package token acquires app-only bearer tokens from Microsoft Entra ID with
// the OAuth 2.0 client credentials grant.
//
// Tokens are never cached: every AcquireToken call performs a fresh
// exchange, and callers request the scope of the API they are about to call.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks -source=provider.go Provider

// Provider returns a bearer token for a scope.
type Provider interface {
	AcquireToken(ctx context.Context, scope string) (string, error)
}

// Credentials identify the confidential client registered in the tenant.
type Credentials struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
}

// CredentialsFromConfig extracts Credentials from the tool configuration.
func CredentialsFromConfig(cfg *config.Config) Credentials {
	return Credentials{
		TenantID:      cfg.TenantID,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		AuthorityHost: cfg.AuthorityHost,
	}
}

// TokenURL is the tenant's v2.0 token endpoint.
func (c Credentials) TokenURL() string {
	host := strings.TrimRight(c.AuthorityHost, "/")
	if host == "" {
		host = config.DefaultAuthorityHost
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", host, c.TenantID)
}

func (c Credentials) validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "TENANT_ID")
	}
	if c.ClientID == "" || c.ClientID == config.PlaceholderClientID {
		missing = append(missing, "CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return vcerrors.NewConfigurationError(
			"service credentials are not configured: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// ClientCredentialsProvider implements Provider against the Entra ID token endpoint.
type ClientCredentialsProvider struct {
	creds      Credentials
	httpClient *http.Client
}

// NewClientCredentialsProvider creates a provider. A nil httpClient uses http.DefaultClient.
func NewClientCredentialsProvider(creds Credentials, httpClient *http.Client) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{creds: creds, httpClient: httpClient}
}

// AcquireToken performs a client credentials exchange for scope.
func (p *ClientCredentialsProvider) AcquireToken(ctx context.Context, scope string) (string, error) {
	if err := p.creds.validate(); err != nil {
		return "", err
	}

	cc := clientcredentials.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		TokenURL:     p.creds.TokenURL(),
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := cc.Token(ctx)
	if err != nil {
		logger.Errorw("token acquisition failed", "scope", scope, "error", err)
		return "", vcerrors.NewUpstreamAuthError(describeTokenError(err), err)
	}

	logger.Debugw("access token acquired", "scope", scope, "expiry", tok.Expiry)
	return tok.AccessToken, nil
}

func describeTokenError(err error) string {
	var r *oauth2.RetrieveError
	if errors.As(err, &r) {
		if r.ErrorDescription != "" {
			return r.ErrorDescription
		}
		if r.ErrorCode != "" {
			return r.ErrorCode
		}
		if r.Response != nil {
			return fmt.Sprintf("token endpoint returned status %d", r.Response.StatusCode)
		}
	}
	return "token endpoint request failed"
}
