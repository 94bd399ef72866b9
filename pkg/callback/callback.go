// Package callback applies Request Service issuance callbacks to stored
// issuance requests.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

// Callback is the subset of the callback body used for correlation.
type Callback struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	Code      string `json:"code"`

	// Raw is the full callback body as received.
	Raw json.RawMessage `json:"-"`
}

// Parse decodes a callback body. The outcome is read from code; when code
// is absent the Request Service requestStatus field is used.
func Parse(body []byte) (Callback, error) {
	var wire struct {
		Callback
		RequestStatus string `json:"requestStatus"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Callback{}, fmt.Errorf("invalid callback body: %w", err)
	}
	cb := wire.Callback
	if cb.Code == "" {
		cb.Code = wire.RequestStatus
	}
	cb.Raw = json.RawMessage(body)
	return cb, nil
}

// CorrelationID returns state, falling back to requestId.
func (c Callback) CorrelationID() string {
	if c.State != "" {
		return c.State
	}
	return c.RequestID
}

// Outcome describes what a callback did to the store.
type Outcome string

const (
	// OutcomeApplied means a pending record transitioned.
	OutcomeApplied Outcome = "applied"
	// OutcomeUnknown means no live record matched the callback.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeIgnored means the record was already terminal.
	OutcomeIgnored Outcome = "ignored"
)

// Handler correlates callbacks with stored requests.
type Handler struct {
	store storage.RequestStore
	now   func() time.Time
}

// NewHandler returns a Handler writing to store.
func NewHandler(store storage.RequestStore) *Handler {
	return &Handler{store: store, now: time.Now}
}

// OnCallback applies cb to the matching pending record. Unknown ids and
// terminal records are acknowledged without mutation; only store failures
// are returned as errors.
func (h *Handler) OnCallback(ctx context.Context, cb Callback) (Outcome, error) {
	id := cb.CorrelationID()
	if id == "" {
		logger.Warnw("callback without state or requestId", "code", cb.Code)
		return OutcomeUnknown, nil
	}

	rec, err := h.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Warnw("callback for unknown or expired request", "request_id", id, "code", cb.Code)
		return OutcomeUnknown, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load request %s: %w", id, err)
	}

	if err := rec.Resolve(cb.Code, cb.Raw, h.now()); err != nil {
		if errors.Is(err, storage.ErrAlreadyResolved) {
			logger.Infow("callback for already resolved request", "request_id", id, "status", string(rec.Status))
			return OutcomeIgnored, nil
		}
		return "", err
	}

	// Put re-creates a record removed by a concurrent cleanup.
	if err := h.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to update request %s: %w", id, err)
	}

	logger.Infow("issuance callback applied",
		"request_id", id, "code", cb.Code, "status", string(rec.Status))
	return OutcomeApplied, nil
}
