package v1

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/api/v1/mocks"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/session"
)

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager("secret", "http://localhost:3000")
	require.NoError(t, err)
	return m
}

func TestAuthRouter_Login(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	flow := mocks.NewMockLoginFlow(ctrl)
	flow.EXPECT().LoginURL(gomock.Any()).Return("https://idp/authorize?state=s", nil).Times(2)

	h := AuthRouter(flow, newSessions(t))

	rec := do(t, h, http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp/authorize?state=s", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/login", "", "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://idp/authorize?state=s", decodeBody(t, rec)["authUrl"])
}

func TestAuthRouter_CallbackIssuesSession(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	flow := mocks.NewMockLoginFlow(ctrl)
	flow.EXPECT().Exchange(gomock.Any(), "s-1", "c-1").
		Return(&auth.Identity{Subject: "op-1", Name: "Alice", Email: "alice@contoso.com"}, nil)

	sessions := newSessions(t)
	h := AuthRouter(flow, sessions)

	rec := do(t, h, http.MethodGet, "/callback?state=s-1&code=c-1", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?success=authenticated", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.AddCookie(cookies[0])
	status := httptest.NewRecorder()
	h.ServeHTTP(status, req)
	body := decodeBody(t, status)
	assert.Equal(t, true, body["authenticated"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "alice@contoso.com", user["username"])
	assert.Equal(t, true, user["isAdmin"])
}

func TestAuthRouter_CallbackErrors(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	flow := mocks.NewMockLoginFlow(ctrl)
	flow.EXPECT().Exchange(gomock.Any(), "s-1", "bad").Return(nil, assert.AnError)

	h := AuthRouter(flow, newSessions(t))

	rec := do(t, h, http.MethodGet, "/callback?error=access_denied", "")
	assert.Equal(t, "/?error=access_denied", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/callback?state=s-1&code=bad", "")
	assert.Equal(t, "/?error=authentication_failed", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthRouter_Logout(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	flow := mocks.NewMockLoginFlow(ctrl)
	flow.EXPECT().LogoutURL().Return("https://idp/logout")

	rec := do(t, AuthRouter(flow, newSessions(t)), http.MethodGet, "/logout", "")
	assert.Equal(t, "https://idp/logout", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Negative(t, rec.Result().Cookies()[0].MaxAge)

	rec = do(t, AuthRouter(nil, newSessions(t)), http.MethodGet, "/logout", "")
	assert.Equal(t, "/?logged_out=true", rec.Header().Get("Location"))
}

func TestAuthRouter_NotConfigured(t *testing.T) {
	t.Parallel()
	h := AuthRouter(nil, newSessions(t))

	rec := do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "Authentication system not configured", body["error"])

	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/login", "").Code)
}

func TestAuthRouter_StatusAnonymous(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	rec := do(t, AuthRouter(mocks.NewMockLoginFlow(ctrl), newSessions(t)), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestHealthcheckRouter(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := do(t, HealthcheckRouter(func() time.Time { return fixed }), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "2025-01-02T03:04:05Z", body["timestamp"])
}
