// Package vcadmin reads credential contracts from the Verified ID admin API.
package vcadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
)

// DefaultConcurrency bounds parallel per-authority contract fetches.
const DefaultConcurrency = 4

// Default card colors used when a contract has no display card.
const (
	DefaultBackgroundColor = "#0066CC"
	DefaultTextColor       = "#FFFFFF"
)

// Contract is a credential contract as shown to operators.
type Contract struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Type        []string `json:"type"`
	Issuer      string   `json:"issuer"`
	AuthorityID string   `json:"authorityId"`
	Status      string   `json:"status"`
	Styling     Styling  `json:"styling"`
	Claims      []Claim  `json:"claims"`
}

// Styling is the card presentation of a contract.
type Styling struct {
	BackgroundColor string          `json:"backgroundColor"`
	TextColor       string          `json:"textColor"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Logo            json.RawMessage `json:"logo,omitempty"`
}

// Claim is a display claim declared by a contract.
type Claim struct {
	Claim    string `json:"claim"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type authority struct {
	ID   string
	Name string
}

type collection struct {
	Value []json.RawMessage `json:"value"`
}

// Client lists authorities and their contracts.
type Client struct {
	tokens      token.Provider
	httpClient  networking.HTTPClient
	endpoint    string
	scope       string
	concurrency int
}

// NewClient returns a Client for the admin API rooted at endpoint.
func NewClient(tokens token.Provider, httpClient networking.HTTPClient, endpoint, scope string) *Client {
	if httpClient == nil {
		httpClient = networking.NewHTTPClient()
	}
	return &Client{
		tokens:      tokens,
		httpClient:  httpClient,
		endpoint:    endpoint,
		scope:       scope,
		concurrency: DefaultConcurrency,
	}
}

// ListContracts returns every contract of every authority in the tenant.
// Authorities whose contracts cannot be read are logged and skipped.
func (c *Client) ListContracts(ctx context.Context) ([]Contract, error) {
	accessToken, err := c.tokens.AcquireToken(ctx, c.scope)
	if err != nil {
		return nil, err
	}

	authorities, err := c.listAuthorities(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	perAuthority := make([][]Contract, len(authorities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, a := range authorities {
		g.Go(func() error {
			contracts, err := c.listAuthorityContracts(gctx, accessToken, a)
			if err != nil {
				logger.Warnw("failed to fetch contracts for authority",
					"authority_id", a.ID, "error", err)
				return nil
			}
			perAuthority[i] = contracts
			return nil
		})
	}
	_ = g.Wait()

	out := []Contract{}
	for _, contracts := range perAuthority {
		out = append(out, contracts...)
	}
	logger.Debugw("listed credential contracts", "authorities", len(authorities), "contracts", len(out))
	return out, nil
}

func (c *Client) get(ctx context.Context, accessToken, requestURL string) (*collection, error) {
	res, err := networking.FetchJSON[collection](ctx, c.httpClient, requestURL,
		networking.WithBearerToken(accessToken))
	if err != nil {
		return nil, upstreamError(err)
	}
	return &res.Data, nil
}

func (c *Client) listAuthorities(ctx context.Context, accessToken string) ([]authority, error) {
	col, err := c.get(ctx, accessToken, c.endpoint+"/authorities")
	if err != nil {
		return nil, err
	}
	out := make([]authority, 0, len(col.Value))
	for _, raw := range col.Value {
		r := gjson.ParseBytes(raw)
		a := authority{ID: r.Get("id").String(), Name: r.Get("name").String()}
		if a.ID == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) listAuthorityContracts(ctx context.Context, accessToken string, a authority) ([]Contract, error) {
	col, err := c.get(ctx, accessToken, fmt.Sprintf("%s/authorities/%s/contracts", c.endpoint, url.PathEscape(a.ID)))
	if err != nil {
		return nil, err
	}
	out := make([]Contract, 0, len(col.Value))
	for _, raw := range col.Value {
		out = append(out, mapContract(gjson.ParseBytes(raw), a))
	}
	return out, nil
}

func mapContract(r gjson.Result, a authority) Contract {
	name := r.Get("name").String()
	issuer := a.Name
	if issuer == "" {
		issuer = a.ID
	}

	c := Contract{
		ID:          r.Get("id").String(),
		Name:        name,
		DisplayName: name,
		Description: "Verifiable credential managed by authority: " + issuer,
		Issuer:      issuer,
		AuthorityID: a.ID,
		Status:      r.Get("status").String(),
		Type:        []string{},
		Claims:      []Claim{},
	}

	for _, t := range r.Get("rules.vc.type").Array() {
		c.Type = append(c.Type, t.String())
	}
	if len(c.Type) == 0 {
		c.Type = []string{"VerifiableCredential"}
	}

	display := r.Get("displays.0")
	if card := display.Get("card"); card.Exists() {
		c.Styling = Styling{
			BackgroundColor: orDefault(card.Get("backgroundColor").String(), DefaultBackgroundColor),
			TextColor:       orDefault(card.Get("textColor").String(), DefaultTextColor),
			Title:           card.Get("title").String(),
			Description:     card.Get("description").String(),
		}
		if logo := card.Get("logo"); logo.Exists() {
			c.Styling.Logo = json.RawMessage(logo.Raw)
		}
	} else {
		c.Styling = Styling{
			BackgroundColor: DefaultBackgroundColor,
			TextColor:       DefaultTextColor,
			Title:           name,
			Description:     "Verifiable credential: " + name,
		}
	}

	for _, claim := range display.Get("claims").Array() {
		c.Claims = append(c.Claims, Claim{
			Claim: claim.Get("claim").String(),
			Label: claim.Get("label").String(),
			Type:  claim.Get("type").String(),
		})
	}
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// upstreamError maps admin API failures onto typed errors.
func upstreamError(err error) error {
	httpErr, ok := networking.AsHTTPError(err)
	if !ok {
		return vcerrors.NewUpstreamError("Verified ID admin API call failed", 0, err)
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return vcerrors.NewPermissionsError(
			"the application is not allowed to read Verified ID contracts; grant the VerifiableCredential.Authority.ReadWrite permission",
			httpErr.Details(), err)
	default:
		return vcerrors.NewUpstreamError("Verified ID admin API call failed", httpErr.StatusCode, err)
	}
}
