// Package session implements operator login for the admin UI: an OIDC
// authorization-code flow with PKCE against Microsoft Entra ID, and a signed
// session cookie carrying the operator identity.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth"
)

// CookieName is the name of the session cookie.
const CookieName = "vidtool_session"

// DefaultTTL is the lifetime of a session cookie.
const DefaultTTL = 8 * time.Hour

const issuer = "vid-issuing-tool"

// ErrNoSession is returned by Read when the request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// Claims are the JWT claims stored in the session cookie.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and reads HS256 signed session cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager signing with secret. Cookies are marked
// Secure when baseURL uses https.
func NewManager(secret, baseURL string, opts ...ManagerOption) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret must not be empty")
	}
	m := &Manager{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		secure: strings.HasPrefix(strings.ToLower(baseURL), "https://"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a session for id and sets it on w.
func (m *Manager) Issue(w http.ResponseWriter, id *auth.Identity) error {
	if id == nil || id.Subject == "" {
		return fmt.Errorf("identity without subject")
	}
	now := m.now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, m.cookie(signed, now.Add(m.ttl), int(m.ttl.Seconds())))
	return nil
}

// Read returns the identity of a valid session cookie on r.
func (m *Manager) Read(r *http.Request) (*auth.Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(c.Value, &claims, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	return &auth.Identity{
		Subject:   claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		SessionID: claims.ID,
	}, nil
}

// Clear expires the session cookie on w.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", time.Unix(0, 0), -1))
}

func (m *Manager) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
