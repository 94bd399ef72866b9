// Package auth holds the authenticated operator identity shared by the
// session layer and the HTTP handlers.
package auth

import "fmt"

// Identity is the operator signed in to the tool.
type Identity struct {
	// Subject is the 'sub' claim of the operator's ID token.
	Subject string `json:"sub"`

	// Name is the display name from the 'name' claim.
	Name string `json:"name"`

	// Email is the 'email' or 'preferred_username' claim.
	Email string `json:"email"`

	// SessionID identifies the session cookie the identity came from.
	SessionID string `json:"sessionId,omitempty"`

	// Anonymous is set when authentication was bypassed in development.
	Anonymous bool `json:"anonymous,omitempty"`
}

// String returns a short representation suitable for logs.
func (i *Identity) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Identity{Subject:%q}", i.Subject)
}

// DevelopmentIdentity is attached to requests when authentication is
// bypassed because OIDC is not configured in development.
func DevelopmentIdentity() *Identity {
	return &Identity{Subject: "development", Name: "Development Operator", Anonymous: true}
}
