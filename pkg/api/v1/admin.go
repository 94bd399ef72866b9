package v1

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/stats"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

// StatsService computes the admin views over the request store.
type StatsService interface {
	Stats(ctx context.Context) (*stats.Stats, error)
	Logs(ctx context.Context, f stats.LogFilter) ([]*storage.IssuanceRequest, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)
	Troubleshoot(ctx context.Context) (*stats.Troubleshoot, error)
}

// AdminRoutes defines the routes for the admin dashboard.
type AdminRoutes struct {
	stats StatsService
	cfg   *config.Config
	ring  *logger.Ring
}

// AdminRouter creates the /api/admin router. All routes pass through requireAuth.
func AdminRouter(svc StatsService, cfg *config.Config, ring *logger.Ring, requireAuth Middleware) http.Handler {
	routes := &AdminRoutes{stats: svc, cfg: cfg, ring: ring}
	if requireAuth == nil {
		requireAuth = passthrough
	}

	r := chi.NewRouter()
	r.Use(requireAuth)
	r.Get("/stats", apierrors.ErrorHandler(routes.getStats))
	r.Get("/logs", apierrors.ErrorHandler(routes.getLogs))
	r.Post("/cleanup", apierrors.ErrorHandler(routes.cleanup))
	r.Get("/test-config", routes.testConfig)
	r.Get("/troubleshoot", apierrors.ErrorHandler(routes.troubleshoot))
	r.Get("/server-logs", apierrors.ErrorHandler(routes.getServerLogs))
	r.Delete("/server-logs", routes.clearServerLogs)
	return r
}

// getStats
//
//	@Summary		Get issuance statistics
//	@Description	Get aggregate issuance counts by status and credential type
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/api/admin/stats [get]
func (a *AdminRoutes) getStats(w http.ResponseWriter, r *http.Request) error {
	s, err := a.stats.Stats(r.Context())
	if err != nil {
		return err
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "stats": s})
	return nil
}

// getLogs
//
//	@Summary		List issuance logs
//	@Description	List recent issuance requests, newest first
//	@Tags			admin
//	@Produce		json
//	@Param			limit			query		int		false	"Maximum number of entries"
//	@Param			status			query		string	false	"Request status"
//	@Param			credentialType	query		string	false	"Credential type"
//	@Success		200				{object}	map[string]any
//	@Failure		400				{string}	string	"Bad Request"
//	@Router			/api/admin/logs [get]
func (a *AdminRoutes) getLogs(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return err
	}
	logs, err := a.stats.Logs(r.Context(), stats.LogFilter{
		Status:         storage.Status(q.Get("status")),
		CredentialType: q.Get("credentialType"),
		Limit:          limit,
	})
	if err != nil {
		return err
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "logs": logs, "count": len(logs)})
	return nil
}

type cleanupRequest struct {
	// OlderThanHours defaults to 24 when absent. Zero removes everything.
	OlderThanHours *float64 `json:"olderThanHours"`
}

// maxAge converts the requested age, saturating at the largest Duration.
func (c cleanupRequest) maxAge() (time.Duration, error) {
	if c.OlderThanHours == nil {
		return stats.DefaultCleanupMaxAge, nil
	}
	hours := *c.OlderThanHours
	switch {
	case hours < 0:
		return 0, vcerrors.NewInvalidArgumentError("olderThanHours must not be negative", nil)
	case hours >= float64(math.MaxInt64)/float64(time.Hour):
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(hours * float64(time.Hour)), nil
}

// cleanup
//
//	@Summary		Delete old issuance requests
//	@Description	Delete requests older than olderThanHours (default 24, zero removes all)
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		cleanupRequest	false	"Cleanup request"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{string}	string	"Bad Request"
//	@Router			/api/admin/cleanup [post]
func (a *AdminRoutes) cleanup(w http.ResponseWriter, r *http.Request) error {
	var req cleanupRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	olderThan, err := req.maxAge()
	if err != nil {
		return err
	}
	deleted, err := a.stats.Cleanup(r.Context(), olderThan)
	if err != nil {
		return err
	}
	logger.Infow("request store cleanup", "deleted", deleted, "older_than", olderThan.String())
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": deleted,
		"message":      fmt.Sprintf("%d entries deleted", deleted),
	})
	return nil
}

// testConfig
//
//	@Summary		Show configuration presence
//	@Description	Report which settings are configured without revealing secrets
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/api/admin/test-config [get]
func (a *AdminRoutes) testConfig(w http.ResponseWriter, _ *http.Request) {
	report := stats.TestConfig(a.cfg)
	apierrors.WriteJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		stats.ConfigReport
	}{Success: true, ConfigReport: report})
}

// troubleshoot
//
//	@Summary		Troubleshoot the issuer setup
//	@Description	Check authority and contract reachability
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Failure		500	{string}	string	"Internal Server Error"
//	@Router			/api/admin/troubleshoot [get]
func (a *AdminRoutes) troubleshoot(w http.ResponseWriter, r *http.Request) error {
	t, err := a.stats.Troubleshoot(r.Context())
	if err != nil {
		return err
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "troubleshoot": t})
	return nil
}

// getServerLogs
//
//	@Summary		Query server logs
//	@Description	Query the in-memory server log buffer
//	@Tags			admin
//	@Produce		json
//	@Param			type		query		string	false	"Log level"
//	@Param			sessionId	query		string	false	"Session ID"
//	@Param			since		query		string	false	"RFC 3339 lower bound"
//	@Param			limit		query		int		false	"Maximum number of entries"
//	@Success		200			{object}	map[string]any
//	@Failure		400			{string}	string	"Bad Request"
//	@Router			/api/admin/server-logs [get]
func (a *AdminRoutes) getServerLogs(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return err
	}
	f := logger.Filter{
		Level:     q.Get("type"),
		SessionID: q.Get("sessionId"),
		Limit:     limit,
	}
	if since := q.Get("since"); since != "" {
		f.Since, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return vcerrors.NewInvalidArgumentError("since must be an RFC 3339 timestamp", err)
		}
	}

	var entries []logger.Entry
	if a.ring != nil {
		entries = a.ring.Query(f)
	}
	if entries == nil {
		entries = []logger.Entry{}
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "logs": entries, "count": len(entries)})
	return nil
}

// clearServerLogs
//
//	@Summary		Clear server logs
//	@Description	Empty the in-memory server log buffer
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/api/admin/server-logs [delete]
func (a *AdminRoutes) clearServerLogs(w http.ResponseWriter, _ *http.Request) {
	if a.ring != nil {
		a.ring.Clear()
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Server logs cleared"})
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, vcerrors.NewInvalidArgumentError(name+" must be a non-negative integer", err)
	}
	return n, nil
}
