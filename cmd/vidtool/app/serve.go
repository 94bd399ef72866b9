// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/api"
	v1 "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/v1"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/session"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var openConsole bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the issuance API server",
		Long: `Start the HTTP API used by the admin console.

The server exposes credential issuance, the Request Service callback endpoint,
request statistics, directory lookups and operator login. When no client
credentials are configured in development mode, operator authentication is
bypassed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, openConsole)
		},
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on")
	if err := viper.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port")); err != nil {
		logger.Errorf("Error binding port flag: %v", err)
	}
	cmd.Flags().BoolVar(&openConsole, "open", false, "Open the admin console in a browser once listening")

	return cmd
}

func runServe(cmd *cobra.Command, openConsole bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		logger.Warnw("issuance is not fully configured", "missing", missing)
	}

	tel, err := telemetry.NewProvider(ctx, telemetry.DefaultConfig(cfg.Version, cfg.OTLPEndpoint))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("telemetry shutdown failed", "error", err)
		}
	}()

	svc, err := newServices(ctx, cfg, wireOptions{
		tracerProvider: tel.TracerProvider(),
		meterProvider:  tel.MeterProvider(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.store.Close(); err != nil {
			logger.Warnw("failed to close request store", "error", err)
		}
	}()

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.BaseURL)
	if err != nil {
		return err
	}

	// Login stays a nil interface when OIDC is not configured.
	var login v1.LoginFlow
	if cfg.OIDCConfigured() {
		authenticator := session.NewAuthenticator(session.OIDCConfigFromConfig(cfg))
		defer func() { _ = authenticator.Close() }()
		login = authenticator
	}

	bypass := cfg.IsDevelopment() && !cfg.OIDCConfigured()
	if bypass {
		logger.Warn("operator authentication is disabled: development mode without client credentials")
	}

	handler := api.NewRouter(api.Deps{
		Config:    cfg,
		Contracts: svc.contracts,
		Issuer:    svc.orchestrator,
		Callbacks: svc.callbacks,
		Store:     svc.store,
		Stats:     svc.stats,
		Users:     svc.directory,
		Ring:      logRing,
		Login:     login,
		Sessions:  sessions,
		Guard:     session.NewGuard(sessions, bypass),
		Telemetry: tel.Middleware(),
		Metrics:   tel.PrometheusHandler(),
	})

	logger.Infow("starting vidtool",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"base_url", cfg.BaseURL,
		"store", cfg.Store.Backend,
		"oidc", cfg.OIDCConfigured(),
	)
	address := fmt.Sprintf(":%d", cfg.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	if openConsole {
		openInBrowser(cfg.BaseURL)
	}
	return api.ServeListener(ctx, listener, handler)
}

func openInBrowser(target string) {
	logger.Infof("Opening browser to: %s", target)
	if err := browser.OpenURL(target); err != nil {
		logger.Warnf("Failed to open browser: %v", err)
		logger.Infof("Please manually open this URL in your browser: %s", target)
	}
}
