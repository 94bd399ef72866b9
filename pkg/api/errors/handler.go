// Package errors provides HTTP error handling utilities for the API.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

// HandlerWithError is a handler that reports failure by returning an error.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// Body is the JSON error response.
type Body struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler adapts fn to http.HandlerFunc, rendering a returned error
// with WriteError. A nil error means fn already wrote the response.
//
//	r.Post("/issue", apierrors.ErrorHandler(routes.issue))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			WriteError(w, r, err)
		}
	}
}

// WriteError renders err as a JSON error response. Untyped 5xx errors are
// logged and answered with the bare status text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := vcerrors.Code(err)

	var typed *vcerrors.Error
	if !stderrors.As(err, &typed) || typed.Type == vcerrors.ErrInternal {
		if code >= http.StatusInternalServerError {
			logger.Errorw("internal server error", "path", r.URL.Path, "error", err)
			WriteJSON(w, code, Body{Error: http.StatusText(code)})
			return
		}
		WriteJSON(w, code, Body{Error: err.Error()})
		return
	}

	if code >= http.StatusInternalServerError {
		logger.Errorw("request failed", "path", r.URL.Path, "status", code, "error", err)
	} else {
		logger.Debugw("request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	WriteJSON(w, code, Body{Error: typed.Message, Details: typed.Details})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorw("failed to encode response", "error", err)
	}
}
