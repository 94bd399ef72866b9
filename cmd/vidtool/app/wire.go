package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/callback"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/directory"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/stats"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/vcadmin"
)

// services are the domain components shared by the commands.
type services struct {
	store        storage.RequestStore
	registry     *contracts.Registry
	tokens       token.Provider
	orchestrator *issuance.Orchestrator
	callbacks    *callback.Handler
	stats        *stats.Aggregator
	contracts    *vcadmin.Client
	directory    *directory.Client
}

type wireOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// newServices builds the domain components from cfg. The caller owns the
// returned store and must close it.
func newServices(ctx context.Context, cfg *config.Config, opts wireOptions) (*services, error) {
	if opts.tracerProvider == nil {
		opts.tracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.meterProvider == nil {
		opts.meterProvider = metricnoop.NewMeterProvider()
	}

	registry, err := contracts.LoadFile(cfg.ContractsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract registry: %w", err)
	}

	store, err := storage.NewRequestStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create request store: %w", err)
	}

	httpClient := networking.NewHTTPClient()
	tokens := token.NewClientCredentialsProvider(token.CredentialsFromConfig(cfg), httpClient)

	return &services{
		store:    store,
		registry: registry,
		tokens:   tokens,
		orchestrator: issuance.NewOrchestrator(
			issuance.SettingsFromConfig(cfg),
			tokens,
			issuance.NewRequestServiceClient(httpClient),
			registry,
			store,
			issuance.WithTracerProvider(opts.tracerProvider),
			issuance.WithMeterProvider(opts.meterProvider),
		),
		callbacks: callback.NewHandler(store),
		stats:     stats.NewAggregator(store, cfg),
		contracts: vcadmin.NewClient(tokens, httpClient, cfg.AdminAPIEndpoint, cfg.AdminAPIScope),
		directory: directory.NewClient(tokens, httpClient, cfg.GraphEndpoint, config.DefaultGraphScope,
			directory.WithClientID(cfg.ClientID)),
	}, nil
}
