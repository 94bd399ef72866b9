package v1

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/errors"
)

// HealthcheckRouter sets up the healthcheck route.
func HealthcheckRouter(now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		getHealthcheck(w, now)
	})
	return r
}

// getHealthcheck
//
//	@Summary		Health check
//	@Description	Check if the API is up
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func getHealthcheck(w http.ResponseWriter, now func() time.Time) {
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": now().UTC().Format(time.RFC3339Nano),
	})
}
