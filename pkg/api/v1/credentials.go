// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	apierrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/callback"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/vcadmin"
)

// Callback endpoint limits. The endpoint is unauthenticated.
const (
	callbackRate  = 20
	callbackBurst = 40
)

// CredentialsRoutes defines the routes for contract listing and issuance.
type CredentialsRoutes struct {
	contracts      ContractLister
	issuer         Issuer
	callbacks      CallbackApplier
	store          StatusReader
	callbackAPIKey string
	limiter        *rate.Limiter
}

// StatusReader reads issuance requests by id.
type StatusReader interface {
	Get(ctx context.Context, requestID string) (*storage.IssuanceRequest, error)
}

// CredentialsConfig holds the dependencies of CredentialsRouter.
type CredentialsConfig struct {
	Contracts ContractLister
	Issuer    Issuer
	Callbacks CallbackApplier
	Store     StatusReader

	// CallbackAPIKey, when set, must be echoed in the api-key header of callbacks.
	CallbackAPIKey string

	// RequireAuth guards every route except the callback.
	RequireAuth Middleware
}

// CredentialsRouter creates the /api/credentials router.
func CredentialsRouter(cfg CredentialsConfig) http.Handler {
	routes := &CredentialsRoutes{
		contracts:      cfg.Contracts,
		issuer:         cfg.Issuer,
		callbacks:      cfg.Callbacks,
		store:          cfg.Store,
		callbackAPIKey: cfg.CallbackAPIKey,
		limiter:        rate.NewLimiter(callbackRate, callbackBurst),
	}
	requireAuth := cfg.RequireAuth
	if requireAuth == nil {
		requireAuth = passthrough
	}

	r := chi.NewRouter()
	r.Post("/callback", apierrors.ErrorHandler(routes.callback))

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/contracts", apierrors.ErrorHandler(routes.listContracts))
		r.Get("/list", apierrors.ErrorHandler(routes.listContracts))
		r.Post("/issue", apierrors.ErrorHandler(routes.issue))
		r.Get("/status/{requestId}", apierrors.ErrorHandler(routes.status))
	})
	return r
}

type contractListResponse struct {
	Success     bool               `json:"success"`
	Credentials []vcadmin.Contract `json:"credentials"`
	Message     string             `json:"message"`
}

// listContracts
//
//	@Summary		List credential types
//	@Description	List the credential contracts available for issuance
//	@Tags			credentials
//	@Produce		json
//	@Success		200	{object}	contractListResponse
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/api/credentials/contracts [get]
//	@Router			/api/credentials/list [get]
func (s *CredentialsRoutes) listContracts(w http.ResponseWriter, r *http.Request) error {
	list, err := s.contracts.ListContracts(r.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []vcadmin.Contract{}
	}
	apierrors.WriteJSON(w, http.StatusOK, contractListResponse{
		Success:     true,
		Credentials: list,
		Message:     fmt.Sprintf("%d credential types available for issuance", len(list)),
	})
	return nil
}

type issueResponse struct {
	Success bool `json:"success"`
	*issuance.IssueResult
}

// issue
//
//	@Summary		Issue a credential
//	@Description	Create an issuance request for a user and return the QR code and PIN
//	@Tags			credentials
//	@Accept			json
//	@Produce		json
//	@Param			request	body		issuance.IssueInput	true	"Issue request"
//	@Success		200		{object}	issueResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Failure		404		{string}	string	"Not Found"
//	@Router			/api/credentials/issue [post]
func (s *CredentialsRoutes) issue(w http.ResponseWriter, r *http.Request) error {
	var in issuance.IssueInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	if in.CredentialType == "" || in.UserID == "" {
		return vcerrors.NewInvalidArgumentError("credentialType and userId are required", nil)
	}

	res, err := s.issuer.Issue(r.Context(), in)
	if err != nil {
		return err
	}
	apierrors.WriteJSON(w, http.StatusOK, issueResponse{Success: true, IssueResult: res})
	return nil
}

// callback
//
//	@Summary		Receive an issuance callback
//	@Description	Record a status update posted by the Request Service
//	@Tags			credentials
//	@Accept			json
//	@Produce		json
//	@Param			api-key	header		string	false	"Callback API key"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{string}	string	"Bad Request"
//	@Failure		401		{string}	string	"Unauthorized"
//	@Failure		429		{object}	apierrors.Body
//	@Router			/api/credentials/callback [post]
func (s *CredentialsRoutes) callback(w http.ResponseWriter, r *http.Request) error {
	if !s.limiter.Allow() {
		apierrors.WriteJSON(w, http.StatusTooManyRequests, apierrors.Body{Error: "Too many callbacks"})
		return nil
	}
	if s.callbackAPIKey != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get("api-key")), []byte(s.callbackAPIKey)) != 1 {
		logger.Warnw("callback rejected: api-key mismatch", "remote", r.RemoteAddr)
		return vcerrors.NewUnauthenticatedError("Invalid callback api-key")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return vcerrors.NewInvalidArgumentError("Invalid request body", err)
	}
	cb, err := callback.Parse(body)
	if err != nil {
		return vcerrors.NewInvalidArgumentError("Invalid callback body", err)
	}

	if _, err := s.callbacks.OnCallback(r.Context(), cb); err != nil {
		logger.Errorw("callback processing failed", "state", cb.CorrelationID(), "error", err)
		apierrors.WriteJSON(w, http.StatusInternalServerError, apierrors.Body{Error: "Callback processing failed"})
		return nil
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
	return nil
}

type statusResponse struct {
	Success bool                     `json:"success"`
	Status  storage.Status           `json:"status"`
	Request *storage.IssuanceRequest `json:"request"`
}

// status
//
//	@Summary		Get issuance status
//	@Description	Get the stored state of an issuance request
//	@Tags			credentials
//	@Produce		json
//	@Param			requestId	path		string	true	"Request ID"
//	@Success		200			{object}	statusResponse
//	@Failure		404			{string}	string	"Not Found"
//	@Router			/api/credentials/status/{requestId} [get]
func (s *CredentialsRoutes) status(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "requestId")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return vcerrors.NewNotFoundError("Request not found or expired", err)
	}
	if err != nil {
		return fmt.Errorf("failed to read request %s: %w", id, err)
	}
	apierrors.WriteJSON(w, http.StatusOK, statusResponse{Success: true, Status: rec.Status, Request: rec})
	return nil
}
