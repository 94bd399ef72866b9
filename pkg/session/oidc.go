// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

// PendingLoginTTL bounds the time between /auth/login and /auth/callback.
const PendingLoginTTL = 10 * time.Minute

// OIDCConfig is the app registration used for operator login.
type OIDCConfig struct {
	TenantID              string
	ClientID              string
	ClientSecret          string
	AuthorityHost         string
	RedirectURI           string
	PostLogoutRedirectURI string
}

// OIDCConfigFromConfig extracts the login settings from the tool configuration.
func OIDCConfigFromConfig(c *config.Config) OIDCConfig {
	return OIDCConfig{
		TenantID:              c.TenantID,
		ClientID:              c.ClientID,
		ClientSecret:          c.ClientSecret,
		AuthorityHost:         c.AuthorityHost,
		RedirectURI:           c.RedirectURI,
		PostLogoutRedirectURI: c.PostLogoutRedirectURI,
	}
}

func (c OIDCConfig) authorityHost() string {
	if c.AuthorityHost == "" {
		return config.DefaultAuthorityHost
	}
	return strings.TrimRight(c.AuthorityHost, "/")
}

// IssuerURL is the v2.0 issuer of the tenant.
func (c OIDCConfig) IssuerURL() string {
	return fmt.Sprintf("%s/%s/v2.0", c.authorityHost(), c.TenantID)
}

type pendingLogin struct {
	verifier string
	nonce    string
}

// Authenticator runs the authorization-code flow with PKCE.
type Authenticator struct {
	cfg        OIDCConfig
	httpClient *http.Client
	pending    *storage.TTLMap[pendingLogin]

	mu       sync.Mutex
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithHTTPClient sets the client used for discovery and token exchange.
func WithHTTPClient(c *http.Client) AuthenticatorOption {
	return func(a *Authenticator) {
		a.httpClient = c
	}
}

// WithProvider skips discovery and uses the given endpoint and verifier.
func WithProvider(endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) AuthenticatorOption {
	return func(a *Authenticator) {
		a.oauth = a.oauthConfig(endpoint)
		a.verifier = verifier
	}
}

// NewAuthenticator creates an Authenticator. Discovery happens on first use.
func NewAuthenticator(cfg OIDCConfig, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		cfg:     cfg,
		pending: storage.NewTTLMap[pendingLogin](PendingLoginTTL),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authenticator) oauthConfig(endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  a.cfg.RedirectURI,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, a.httpClient)
}

func (a *Authenticator) ensure(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.oauth != nil && a.verifier != nil {
		return a.oauth, a.verifier, nil
	}

	provider, err := oidc.NewProvider(a.clientContext(ctx), a.cfg.IssuerURL())
	if err != nil {
		return nil, nil, vcerrors.NewUpstreamAuthError("failed to discover OIDC provider", err)
	}
	a.oauth = a.oauthConfig(provider.Endpoint())
	a.verifier = provider.Verifier(&oidc.Config{ClientID: a.cfg.ClientID})
	return a.oauth, a.verifier, nil
}

// LoginURL starts a login and returns the authorization URL to redirect to.
func (a *Authenticator) LoginURL(ctx context.Context) (string, error) {
	oc, _, err := a.ensure(ctx)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	p := pendingLogin{
		verifier: oauth2.GenerateVerifier(),
		nonce:    uuid.NewString(),
	}
	a.pending.Set(state, p)

	return oc.AuthCodeURL(state,
		oauth2.S256ChallengeOption(p.verifier),
		oidc.Nonce(p.nonce),
	), nil
}

// Exchange completes a login started by LoginURL. Each state is accepted once.
func (a *Authenticator) Exchange(ctx context.Context, state, code string) (*auth.Identity, error) {
	if state == "" || code == "" {
		return nil, vcerrors.NewInvalidArgumentError("missing state or code", nil)
	}
	p, ok := a.pending.Take(state)
	if !ok {
		return nil, vcerrors.NewInvalidArgumentError("unknown or expired login state", nil)
	}

	oc, verifier, err := a.ensure(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := oc.Exchange(a.clientContext(ctx), code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		return nil, vcerrors.NewUpstreamAuthError("failed to exchange authorization code", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, vcerrors.NewUpstreamAuthError("token response has no id_token", nil)
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, vcerrors.NewUpstreamAuthError("failed to verify ID token", err)
	}
	if idToken.Nonce != p.nonce {
		return nil, vcerrors.NewUpstreamAuthError("ID token nonce mismatch", nil)
	}

	var claims struct {
		Name              string `json:"name"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, vcerrors.NewUpstreamAuthError("failed to decode ID token claims", err)
	}

	id := &auth.Identity{
		Subject: idToken.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}
	if id.Email == "" {
		id.Email = claims.PreferredUsername
	}
	logger.Infow("operator signed in", "subject", id.Subject)
	return id, nil
}

// LogoutURL is the tenant end-session URL returning to the tool.
func (a *Authenticator) LogoutURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/logout?post_logout_redirect_uri=%s",
		a.cfg.authorityHost(), a.cfg.TenantID, url.QueryEscape(a.cfg.PostLogoutRedirectURI))
}

// Close stops the pending login sweeper.
func (a *Authenticator) Close() error {
	return a.pending.Close()
}
