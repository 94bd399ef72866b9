// Package directory reads tenant users from Microsoft Graph.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
)

const (
	// DefaultTop is the page size used when the caller does not set one.
	DefaultTop = 20
	// MaxTop is the largest page size Graph accepts for users.
	MaxTop = 999

	listSelect = "id,displayName,userPrincipalName,mail,jobTitle,department,userType,accountEnabled"
	getSelect  = listSelect + ",officeLocation,mobilePhone,businessPhones,createdDateTime"
)

var baseFilters = []string{"userType eq 'Member'", "accountEnabled eq true"}

// PermissionsHelp tells the operator which Graph permissions are missing.
type PermissionsHelp struct {
	Required        []string `json:"required"`
	GrantConsentURL string   `json:"grantConsentUrl,omitempty"`
}

// User is a directory user.
type User struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName"`
	Mail              string   `json:"mail,omitempty"`
	UserPrincipalName string   `json:"userPrincipalName"`
	JobTitle          string   `json:"jobTitle,omitempty"`
	Department        string   `json:"department,omitempty"`
	UserType          string   `json:"userType,omitempty"`
	AccountEnabled    bool     `json:"accountEnabled"`
	OfficeLocation    string   `json:"officeLocation,omitempty"`
	MobilePhone       string   `json:"mobilePhone,omitempty"`
	BusinessPhones    []string `json:"businessPhones,omitempty"`
	CreatedDateTime   string   `json:"createdDateTime,omitempty"`
}

// Email returns the mail address, falling back to the UPN.
func (u User) Email() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}

// SearchFilter narrows a user search. Empty fields are ignored.
type SearchFilter struct {
	DisplayName string `json:"displayName"`
	Department  string `json:"department"`
	JobTitle    string `json:"jobTitle"`
	Top         int    `json:"top"`
	Skip        int    `json:"skip"`
}

// ListResult is a filtered page of users.
type ListResult struct {
	Users    []User
	Returned int
}

// Filtered is how many users FilterUsers removed from the page.
func (r ListResult) Filtered() int {
	return r.Returned - len(r.Users)
}

type usersPage struct {
	Value []User `json:"value"`
}

// Client queries Graph with an application token.
type Client struct {
	tokens     token.Provider
	httpClient networking.HTTPClient
	endpoint   string
	scope      string
	clientID   string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter replaces the outbound request limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithClientID sets the app id used in the consent link of permission errors.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// NewClient returns a Graph client. endpoint is the Graph root, for
// example https://graph.microsoft.com.
func NewClient(tokens token.Provider, httpClient networking.HTTPClient, endpoint, scope string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = networking.NewHTTPClient()
	}
	c := &Client{
		tokens:     tokens,
		httpClient: httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		scope:      scope,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns enabled members, optionally those whose name, mail or UPN
// starts with search.
func (c *Client) List(ctx context.Context, search string, top int) (*ListResult, error) {
	filters := append([]string{}, baseFilters...)
	if search != "" {
		q := quote(search)
		filters = append(filters, fmt.Sprintf(
			"(startswith(displayName,%s) or startswith(userPrincipalName,%s) or startswith(mail,%s))", q, q, q))
	}
	return c.query(ctx, filters, top, 0)
}

// Search returns enabled members matching every set field of f.
func (c *Client) Search(ctx context.Context, f SearchFilter) (*ListResult, error) {
	filters := append([]string{}, baseFilters...)
	if f.DisplayName != "" {
		filters = append(filters, fmt.Sprintf("startswith(displayName,%s)", quote(f.DisplayName)))
	}
	if f.Department != "" {
		filters = append(filters, fmt.Sprintf("department eq %s", quote(f.Department)))
	}
	if f.JobTitle != "" {
		filters = append(filters, fmt.Sprintf("startswith(jobTitle,%s)", quote(f.JobTitle)))
	}
	return c.query(ctx, filters, f.Top, f.Skip)
}

// Get returns one user by object id or UPN.
func (c *Client) Get(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, vcerrors.NewInvalidArgumentError("user id is required", nil)
	}
	q := url.Values{"$select": {getSelect}}
	res, err := c.fetch(ctx, fmt.Sprintf("%s/v1.0/users/%s?%s", c.endpoint, url.PathEscape(id), q.Encode()))
	if err != nil {
		if networking.IsHTTPError(err, http.StatusNotFound) {
			return nil, vcerrors.NewNotFoundError("user not found", err)
		}
		return nil, err
	}
	var u User
	if err := decode(res, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) query(ctx context.Context, filters []string, top, skip int) (*ListResult, error) {
	if top <= 0 {
		top = DefaultTop
	}
	top = min(top, MaxTop)

	q := url.Values{
		"$top":    {strconv.Itoa(top)},
		"$select": {listSelect},
		"$filter": {strings.Join(filters, " and ")},
	}
	if skip > 0 {
		q.Set("$skip", strconv.Itoa(skip))
	}

	res, err := c.fetch(ctx, c.endpoint+"/v1.0/users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var page usersPage
	if err := decode(res, &page); err != nil {
		return nil, err
	}
	return &ListResult{Users: FilterUsers(page.Value), Returned: len(page.Value)}, nil
}

func (c *Client) fetch(ctx context.Context, requestURL string) (*networking.FetchResult[json.RawMessage], error) {
	accessToken, err := c.tokens.AcquireToken(ctx, c.scope)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("graph rate limiter: %w", err)
	}

	res, err := networking.FetchJSON[json.RawMessage](ctx, c.httpClient, requestURL,
		networking.WithBearerToken(accessToken))
	if err != nil {
		return nil, c.upstreamError(err)
	}
	return res, nil
}

func (c *Client) upstreamError(err error) error {
	httpErr, ok := networking.AsHTTPError(err)
	if !ok {
		return vcerrors.NewUpstreamError("Microsoft Graph call failed", 0, err)
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		help := PermissionsHelp{Required: []string{"User.Read.All (Application)", "Directory.Read.All (Application)"}}
		if c.clientID != "" {
			help.GrantConsentURL = "https://portal.azure.com/#view/Microsoft_AAD_RegisteredApps/ApplicationMenuBlade/~/CallAnAPI/appId/" +
				c.clientID + "/isMSAApp~/false"
		}
		return vcerrors.NewPermissionsError(
			"Microsoft Graph API permissions required: grant admin consent for User.Read.All and Directory.Read.All",
			help, err)
	case http.StatusNotFound:
		return err
	default:
		return vcerrors.NewUpstreamError("Microsoft Graph call failed", httpErr.StatusCode, err)
	}
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func decode(res *networking.FetchResult[json.RawMessage], v any) error {
	if err := json.Unmarshal(res.Raw, v); err != nil {
		return vcerrors.NewUpstreamError("unexpected Microsoft Graph response", res.StatusCode, err)
	}
	return nil
}
