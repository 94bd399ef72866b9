package contracts

import (
	"fmt"
	"maps"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
)

// ClientName is shown to the holder in the wallet during issuance.
const ClientName = "VID Issuing Tool Admin"

// Payload is the createIssuanceRequest body sent to the Request Service.
type Payload struct {
	IncludeQRCode bool              `json:"includeQRCode"`
	Authority     string            `json:"authority"`
	Registration  Registration      `json:"registration"`
	Callback      Callback          `json:"callback"`
	Type          string            `json:"type"`
	Manifest      string            `json:"manifest"`
	Claims        map[string]string `json:"claims,omitempty"`
	PIN           *PIN              `json:"pin,omitempty"`
}

// Registration describes the requesting application.
type Registration struct {
	ClientName string `json:"clientName"`
	Purpose    string `json:"purpose"`
}

// Callback tells the Request Service where to report progress.
type Callback struct {
	URL     string            `json:"url"`
	State   string            `json:"state"`
	Headers map[string]string `json:"headers,omitempty"`
}

// PIN is the numeric challenge the holder types into the wallet.
type PIN struct {
	Value  string `json:"value"`
	Length int    `json:"length"`
}

// BuildContext carries the per-request and per-tenant values of a payload.
type BuildContext struct {
	RequestID      string
	UserID         string
	TenantID       string
	Authority      string
	BaseURL        string
	CallbackAPIKey string
}

// CallbackPath is where the Request Service posts issuance callbacks.
const CallbackPath = "/api/credentials/callback"

// ManifestURL returns the manifest location of a contract in a tenant.
func ManifestURL(tenantID, credentialType string) string {
	return fmt.Sprintf(
		"https://verifiedid.did.msidentity.com/v1.0/tenants/%s/verifiableCredentials/contracts/%s/manifest",
		tenantID, credentialType)
}

// BuildPayload returns the issuance body for credentialType without a PIN.
func (r *Registry) BuildPayload(credentialType string, bc BuildContext) (*Payload, Strategy, error) {
	if credentialType == "" {
		return nil, Strategy{}, vcerrors.NewInvalidArgumentError("credentialType is required", nil)
	}
	if bc.RequestID == "" {
		return nil, Strategy{}, vcerrors.NewInvalidArgumentError("request id is required", nil)
	}

	p := &Payload{
		IncludeQRCode: true,
		Authority:     bc.Authority,
		Registration: Registration{
			ClientName: ClientName,
			Purpose:    "Credential issuance for user " + bc.UserID,
		},
		Callback: Callback{
			URL:   bc.BaseURL + CallbackPath,
			State: bc.RequestID,
		},
		Type:     credentialType,
		Manifest: ManifestURL(bc.TenantID, credentialType),
	}
	if bc.CallbackAPIKey != "" {
		p.Callback.Headers = map[string]string{"api-key": bc.CallbackAPIKey}
	}

	s := r.Lookup(credentialType)
	switch s.Kind {
	case KindPortalAttestation:
		// claims resolved by the provider
	case KindSelfIssued, KindDefault:
		p.Claims = maps.Clone(s.Claims)
	}
	return p, s, nil
}

// WithPIN returns a copy of p carrying pin.
func (p Payload) WithPIN(pin *PIN) *Payload {
	p.PIN = pin
	return &p
}

// WithoutPIN returns a copy of p with no PIN.
func (p Payload) WithoutPIN() *Payload {
	p.PIN = nil
	return &p
}
