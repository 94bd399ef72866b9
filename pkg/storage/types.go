package storage

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stacklok/toolhive-core/httperr"
)

// Lookup and resolution errors carry the HTTP status the API answers with.
var (
	ErrNotFound        = httperr.WithCode(errors.New("request not found or expired"), http.StatusNotFound)
	ErrAlreadyResolved = httperr.WithCode(errors.New("request already resolved"), http.StatusConflict)
)

// Status is the lifecycle state of an issuance request.
type Status string

const (
	// StatusPending is the initial state, waiting for the provider callback.
	StatusPending Status = "pending"
	// StatusCompleted means the wallet retrieved the credential.
	StatusCompleted Status = "completed"
	// StatusError means the provider reported any other outcome.
	StatusError Status = "error"
)

// CodeRequestRetrieved is the callback code reporting successful credential retrieval.
const CodeRequestRetrieved = "request_retrieved"

// IssuanceRequest tracks one credential issuance from submission to callback.
type IssuanceRequest struct {
	RequestID        string          `json:"requestId"`
	CredentialType   string          `json:"credentialType"`
	UserID           string          `json:"userId"`
	UserEmail        string          `json:"userEmail"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	PINUsed          bool            `json:"pinUsed"`
	IssuanceResponse json.RawMessage `json:"issuanceResponse,omitempty"`
	CallbackData     json.RawMessage `json:"callbackData,omitempty"`
}

// NewIssuanceRequest returns a pending record created at now.
func NewIssuanceRequest(
	requestID, credentialType, userID, userEmail string,
	issuanceResponse json.RawMessage,
	pinUsed bool,
	now time.Time,
) *IssuanceRequest {
	return &IssuanceRequest{
		RequestID:        requestID,
		CredentialType:   credentialType,
		UserID:           userID,
		UserEmail:        userEmail,
		Status:           StatusPending,
		CreatedAt:        now,
		PINUsed:          pinUsed,
		IssuanceResponse: issuanceResponse,
	}
}

// IsTerminal reports whether the request has left the pending state.
func (r *IssuanceRequest) IsTerminal() bool {
	return r.Status != StatusPending
}

// Resolve applies a provider callback. The request becomes completed when
// code is CodeRequestRetrieved and error otherwise. It fails with
// ErrAlreadyResolved when the request is already terminal.
func (r *IssuanceRequest) Resolve(code string, callbackData json.RawMessage, now time.Time) error {
	if r.IsTerminal() {
		return ErrAlreadyResolved
	}
	if code == CodeRequestRetrieved {
		r.Status = StatusCompleted
	} else {
		r.Status = StatusError
	}
	r.CallbackData = callbackData
	r.CompletedAt = &now
	return nil
}

// Clone returns a copy that shares no mutable state with r.
func (r *IssuanceRequest) Clone() *IssuanceRequest {
	cp := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
