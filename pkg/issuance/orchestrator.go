// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package issuance submits credential issuance requests to the Verified ID
// Request Service and records them in the request store.
package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/qr"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

const instrumentationName = "github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"

// Endpoint labels used in logs and metrics.
const (
	EndpointPrimary   = "primary"
	EndpointAlternate = "alternate"
)

// Settings are the tenant values every issuance needs.
type Settings struct {
	TenantID          string
	Authority         string
	BaseURL           string
	CallbackAPIKey    string
	RequestServiceURL string
	Scope             string
}

// SettingsFromConfig extracts issuance settings from the tool configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		TenantID:          cfg.TenantID,
		Authority:         cfg.IssuerAuthority,
		BaseURL:           cfg.BaseURL,
		CallbackAPIKey:    cfg.CallbackAPIKey,
		RequestServiceURL: cfg.RequestServiceURL,
		Scope:             cfg.RequestServiceScope,
	}
}

// PrimaryEndpoint is the documented createIssuanceRequest location.
func (s Settings) PrimaryEndpoint() string {
	return s.RequestServiceURL + "/verifiableCredentials/createIssuanceRequest"
}

// AlternateEndpoint is tried when the primary endpoint answers 404.
func (s Settings) AlternateEndpoint() string {
	return s.RequestServiceURL + "/createIssuanceRequest"
}

// IssueInput is an operator issuance request.
type IssueInput struct {
	CredentialType string `json:"credentialType"`
	UserID         string `json:"userId"`
	UserEmail      string `json:"userEmail"`
	// Claims may hold any JSON; the contract registry decides what is sent.
	Claims map[string]any `json:"claims,omitempty"`
}

// IssueResult is returned to the operator after a successful submission.
type IssueResult struct {
	RequestID string  `json:"requestId"`
	QRCode    string  `json:"qrCodeUrl"`
	DeepLink  string  `json:"deepLink"`
	Expiry    int64   `json:"expiry"`
	PIN       *string `json:"pin"`
	Message   string  `json:"message"`
}

// Orchestrator runs the issuance attempt sequence.
type Orchestrator struct {
	settings Settings
	tokens   token.Provider
	client   Client
	registry *contracts.Registry
	store    storage.RequestStore

	now    func() time.Time
	newID  func() string
	newPIN func() (*contracts.PIN, error)

	tracer   trace.Tracer
	issued   metric.Int64Counter
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithPINGenerator overrides PIN generation.
func WithPINGenerator(newPIN func() (*contracts.PIN, error)) Option {
	return func(o *Orchestrator) { o.newPIN = newPIN }
}

// WithTracerProvider sets the tracer provider used for issuance spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for issuance metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Orchestrator) { o.initMetrics(mp) }
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(
	settings Settings,
	tokens token.Provider,
	client Client,
	registry *contracts.Registry,
	store storage.RequestStore,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		tokens:   tokens,
		client:   client,
		registry: registry,
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		newPIN:   GeneratePIN,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}
	o.initMetrics(metricnoop.NewMeterProvider())
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) initMetrics(mp metric.MeterProvider) {
	meter := mp.Meter(instrumentationName)
	o.issued, _ = meter.Int64Counter(
		"vidtool_issuance_requests",
		metric.WithDescription("Issuance requests by outcome"),
	)
	o.attempts, _ = meter.Int64Counter(
		"vidtool_issuance_attempts",
		metric.WithDescription("Request Service calls by endpoint and PIN usage"),
	)
	o.duration, _ = meter.Float64Histogram(
		"vidtool_issuance_duration",
		metric.WithDescription("Duration of issuance submissions in seconds"),
		metric.WithUnit("s"),
	)
}

// Issue validates in, submits it to the Request Service and stores a
// pending record keyed by the returned request id.
func (o *Orchestrator) Issue(ctx context.Context, in IssueInput) (result *IssueResult, err error) {
	start := o.now()
	ctx, span := o.tracer.Start(ctx, "issuance.Issue",
		trace.WithAttributes(attribute.String("vc.credential_type", in.CredentialType)))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		o.issued.Add(ctx, 1, attrs)
		o.duration.Record(ctx, o.now().Sub(start).Seconds(), attrs)
		span.End()
	}()

	if in.CredentialType == "" || in.UserID == "" {
		return nil, vcerrors.NewInvalidArgumentError("credentialType and userId are required", nil)
	}
	if o.settings.Authority == "" {
		return nil, vcerrors.NewConfigurationError("ISSUER_AUTHORITY is not configured", nil)
	}

	requestID := o.newID()
	span.SetAttributes(attribute.String("vc.request_id", requestID))

	payload, strategy, err := o.registry.BuildPayload(in.CredentialType, contracts.BuildContext{
		RequestID:      requestID,
		UserID:         in.UserID,
		TenantID:       o.settings.TenantID,
		Authority:      o.settings.Authority,
		BaseURL:        o.settings.BaseURL,
		CallbackAPIKey: o.settings.CallbackAPIKey,
	})
	if err != nil {
		return nil, err
	}
	if len(in.Claims) > 0 {
		logger.Debugw("ignoring caller-supplied claims; claims come from the contract registry",
			"request_id", requestID, "claims", len(in.Claims))
	}

	var pin *contracts.PIN
	if strategy.AllowPIN {
		if pin, err = o.newPIN(); err != nil {
			return nil, vcerrors.NewInternalError("failed to generate PIN", err)
		}
	}

	accessToken, err := o.tokens.AcquireToken(ctx, o.settings.Scope)
	if err != nil {
		return nil, err
	}

	logger.Infow("submitting issuance request",
		"request_id", requestID,
		"credential_type", in.CredentialType,
		"strategy", string(strategy.Kind),
		"user_id", in.UserID)

	resp, usedPIN, err := o.submit(ctx, requestID, accessToken, payload, pin)
	if err != nil {
		logger.Errorw("issuance request failed", "request_id", requestID, "error", err)
		return nil, err
	}

	qrCode, err := qr.DataURI(resp.URL)
	if err != nil {
		return nil, err
	}

	rec := storage.NewIssuanceRequest(requestID, in.CredentialType, in.UserID, in.UserEmail,
		resp.Raw, usedPIN != nil, o.now())
	if err := o.store.Put(ctx, rec); err != nil {
		return nil, vcerrors.NewInternalError("failed to store issuance request", err)
	}

	result = &IssueResult{
		RequestID: requestID,
		QRCode:    qrCode,
		DeepLink:  resp.URL,
		Expiry:    resp.Expiry,
		Message:   "Credential issued successfully. Scan the QR code with Microsoft Authenticator.",
	}
	if usedPIN != nil {
		v := usedPIN.Value
		result.PIN = &v
		result.Message = fmt.Sprintf(
			"Credential issued successfully. Use PIN: %s. Scan the QR code with Microsoft Authenticator.", v)
	}
	span.SetAttributes(attribute.Bool("vc.pin_used", usedPIN != nil))
	logger.Infow("issuance request created", "request_id", requestID, "pin_used", usedPIN != nil)
	return result, nil
}

// submit walks the attempt sequence. A PIN-unsupported failure drops the
// PIN and retries the same endpoint; a 404 on the primary endpoint moves to
// the alternate endpoint keeping the current PIN choice. Anything else ends
// the sequence, so at most three calls are made.
func (o *Orchestrator) submit(
	ctx context.Context, requestID, accessToken string, base *contracts.Payload, pin *contracts.PIN,
) (*CreateResponse, *contracts.PIN, error) {
	endpoints := []struct{ label, url string }{
		{EndpointPrimary, o.settings.PrimaryEndpoint()},
		{EndpointAlternate, o.settings.AlternateEndpoint()},
	}

	idx := 0
	current := pin
	for {
		ep := endpoints[idx]
		body := base.WithoutPIN()
		if current != nil {
			body = base.WithPIN(current)
		}

		resp, err := o.client.CreateIssuanceRequest(ctx, ep.url, accessToken, body)
		o.recordAttempt(ctx, ep.label, current != nil, err)
		if err == nil {
			return resp, current, nil
		}

		switch {
		case current != nil && IsPINUnsupported(err):
			logger.Infow("PIN rejected by Request Service, retrying without PIN",
				"request_id", requestID, "endpoint", ep.label, "error", err)
			current = nil
		case idx == 0 && IsEndpointNotFound(err):
			logger.Infow("primary issuance endpoint not found, trying alternate",
				"request_id", requestID, "endpoint", endpoints[1].url)
			idx = 1
		default:
			return nil, nil, toIssuanceError(err)
		}
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, endpoint string, withPIN bool, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	o.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Bool("pin", withPIN),
		attribute.String("outcome", outcome),
	))
}
