package v1

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/session"
)

const notConfigured = "Authentication system not configured"

// AuthRoutes defines the operator login routes.
type AuthRoutes struct {
	flow     LoginFlow
	sessions *session.Manager
}

// AuthRouter creates the /auth router. flow is nil when OIDC is not configured.
func AuthRouter(flow LoginFlow, sessions *session.Manager) http.Handler {
	routes := &AuthRoutes{flow: flow, sessions: sessions}

	r := chi.NewRouter()
	r.Get("/login", apierrors.ErrorHandler(routes.login))
	r.Get("/callback", routes.callback)
	r.Get("/logout", routes.logout)
	r.Get("/status", routes.status)
	return r
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// login
//
//	@Summary		Start sign-in
//	@Description	Redirect to the identity provider, or return the URL when JSON is accepted
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Success		302	{string}	string	"Found"
//	@Failure		500	{object}	apierrors.Body
//	@Router			/auth/login [get]
func (a *AuthRoutes) login(w http.ResponseWriter, r *http.Request) error {
	if a.flow == nil {
		apierrors.WriteJSON(w, http.StatusInternalServerError, apierrors.Body{Error: notConfigured})
		return nil
	}
	authURL, err := a.flow.LoginURL(r.Context())
	if err != nil {
		return err
	}
	if wantsJSON(r) {
		apierrors.WriteJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
		return nil
	}
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

func redirectWith(w http.ResponseWriter, r *http.Request, key, value string) {
	http.Redirect(w, r, "/?"+url.Values{key: {value}}.Encode(), http.StatusFound)
}

// callback
//
//	@Summary		Complete sign-in
//	@Description	Exchange the authorization code and start a session
//	@Tags			auth
//	@Param			code	query		string	false	"Authorization code"
//	@Param			state	query		string	false	"State"
//	@Success		302		{string}	string	"Found"
//	@Router			/auth/callback [get]
func (a *AuthRoutes) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		logger.Warnw("login rejected by identity provider", "error", e, "description", q.Get("error_description"))
		redirectWith(w, r, "error", e)
		return
	}
	if a.flow == nil || a.sessions == nil {
		redirectWith(w, r, "error", "not_configured")
		return
	}

	id, err := a.flow.Exchange(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		logger.Errorw("login failed", "error", err)
		redirectWith(w, r, "error", "authentication_failed")
		return
	}
	if err := a.sessions.Issue(w, id); err != nil {
		logger.Errorw("failed to issue session", "error", err)
		redirectWith(w, r, "error", "session_failed")
		return
	}
	redirectWith(w, r, "success", "authenticated")
}

// logout
//
//	@Summary		Sign out
//	@Description	Clear the session and redirect to the identity provider logout
//	@Tags			auth
//	@Success		302	{string}	string	"Found"
//	@Router			/auth/logout [get]
func (a *AuthRoutes) logout(w http.ResponseWriter, r *http.Request) {
	if a.sessions != nil {
		a.sessions.Clear(w)
	}
	if a.flow == nil {
		redirectWith(w, r, "logged_out", "true")
		return
	}
	http.Redirect(w, r, a.flow.LogoutURL(), http.StatusFound)
}

type statusUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type authStatus struct {
	Authenticated bool        `json:"authenticated"`
	User          *statusUser `json:"user,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// status
//
//	@Summary		Get sign-in status
//	@Description	Report whether the caller holds a valid session
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	authStatus
//	@Failure		500	{object}	authStatus
//	@Router			/auth/status [get]
func (a *AuthRoutes) status(w http.ResponseWriter, r *http.Request) {
	if a.sessions != nil {
		if id, err := a.sessions.Read(r); err == nil {
			apierrors.WriteJSON(w, http.StatusOK, authStatus{
				Authenticated: true,
				User:          &statusUser{Name: id.Name, Username: id.Email, IsAdmin: true},
			})
			return
		}
	}
	if a.flow == nil {
		apierrors.WriteJSON(w, http.StatusInternalServerError, authStatus{Error: notConfigured})
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, authStatus{})
}
