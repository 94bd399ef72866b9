// Package api contains the REST API of the issuance tool.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/v1"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/session"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 90 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Deps are the components the API is built from.
type Deps struct {
	Config    *config.Config
	Contracts v1.ContractLister
	Issuer    v1.Issuer
	Callbacks v1.CallbackApplier
	Store     v1.StatusReader
	Stats     v1.StatsService
	Users     v1.UserDirectory
	Ring      *logger.Ring

	// Login is nil when OIDC is not configured.
	Login    v1.LoginFlow
	Sessions *session.Manager
	Guard    *session.Guard

	// Telemetry instruments every request when set.
	Telemetry v1.Middleware
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter assembles the HTTP handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(middlewareTimeout),
		headersMiddleware,
	)
	if d.Telemetry != nil {
		r.Use(d.Telemetry)
	}

	var requireAuth v1.Middleware
	if d.Guard != nil {
		requireAuth = d.Guard.RequireAuth
	}

	routers := map[string]http.Handler{
		"/health": v1.HealthcheckRouter(nil),
		"/auth":   v1.AuthRouter(d.Login, d.Sessions),
		"/api/credentials": v1.CredentialsRouter(v1.CredentialsConfig{
			Contracts:      d.Contracts,
			Issuer:         d.Issuer,
			Callbacks:      d.Callbacks,
			Store:          d.Store,
			CallbackAPIKey: d.Config.CallbackAPIKey,
			RequireAuth:    requireAuth,
		}),
		"/api/admin": v1.AdminRouter(d.Stats, d.Config, d.Ring, requireAuth),
		"/api/users": v1.UsersRouter(d.Users, requireAuth),
	}
	for prefix, router := range routers {
		r.Mount(prefix, router)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}

// ServeListener serves handler on an already bound listener until ctx is cancelled.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("starting HTTP server", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
