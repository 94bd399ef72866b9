// Package stats derives operator dashboards from the issuance request store.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tidwall/gjson"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

// Limits applied to the derived views.
const (
	RecentActivityLimit  = 10
	RecentErrorsLimit    = 5
	CacheKeysLimit       = 10
	DefaultLogsLimit     = 50
	DefaultCleanupMaxAge = 24 * time.Hour
	unknownError         = "Unknown error"
)

// Activity is a request summary shown in the recent activity list.
type Activity struct {
	RequestID      string         `json:"requestId"`
	CredentialType string         `json:"credentialType"`
	UserID         string         `json:"userId"`
	Status         storage.Status `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}

// Stats is the request tally.
type Stats struct {
	Total          int        `json:"totalRequests"`
	Completed      int        `json:"completedRequests"`
	Pending        int        `json:"pendingRequests"`
	Error          int        `json:"errorRequests"`
	RecentActivity []Activity `json:"recentActivity"`
}

// LogFilter narrows the request log.
type LogFilter struct {
	Status         storage.Status
	CredentialType string
	Limit          int
}

// Aggregator computes views over a RequestStore.
type Aggregator struct {
	store   storage.RequestStore
	cfg     *config.Config
	started time.Time
	now     func() time.Time
	host    HostInspector
}

// NewAggregator returns an Aggregator for store. cfg supplies the
// environment name and the configuration report.
func NewAggregator(store storage.RequestStore, cfg *config.Config) *Aggregator {
	return &Aggregator{
		store:   store,
		cfg:     cfg,
		started: time.Now(),
		now:     time.Now,
		host:    processInspector{},
	}
}

func sortNewestFirst(recs []*storage.IssuanceRequest) {
	slices.SortStableFunc(recs, func(a, b *storage.IssuanceRequest) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}

func (a *Aggregator) list(ctx context.Context) ([]*storage.IssuanceRequest, error) {
	recs, err := a.store.List(ctx)
	if err != nil {
		return nil, vcerrors.NewInternalError("failed to list issuance requests", err)
	}
	sortNewestFirst(recs)
	return recs, nil
}

// Stats tallies live requests by status.
func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	recs, err := a.list(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{Total: len(recs), RecentActivity: []Activity{}}
	for _, r := range recs {
		switch r.Status {
		case storage.StatusPending:
			s.Pending++
		case storage.StatusCompleted:
			s.Completed++
		case storage.StatusError:
			s.Error++
		}
	}
	for _, r := range recs[:min(len(recs), RecentActivityLimit)] {
		s.RecentActivity = append(s.RecentActivity, Activity{
			RequestID:      r.RequestID,
			CredentialType: r.CredentialType,
			UserID:         r.UserID,
			Status:         r.Status,
			CreatedAt:      r.CreatedAt,
			CompletedAt:    r.CompletedAt,
		})
	}
	return s, nil
}

// Logs returns requests matching f, newest first. The raw issuance
// response is only kept in development.
func (a *Aggregator) Logs(ctx context.Context, f LogFilter) ([]*storage.IssuanceRequest, error) {
	recs, err := a.list(ctx)
	if err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLogsLimit
	}

	out := make([]*storage.IssuanceRequest, 0, min(len(recs), f.Limit))
	for _, r := range recs {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.CredentialType != "" && r.CredentialType != f.CredentialType {
			continue
		}
		if !a.cfg.IsDevelopment() {
			r.IssuanceResponse = nil
		}
		out = append(out, r)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Cleanup deletes requests created more than olderThan ago. Zero deletes
// every request created before now.
func (a *Aggregator) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, vcerrors.NewInvalidArgumentError("olderThanHours must not be negative", nil)
	}
	n, err := a.store.DeleteOlderThan(ctx, a.now().Add(-olderThan))
	if err != nil {
		return 0, vcerrors.NewInternalError("failed to clean up issuance requests", err)
	}
	return n, nil
}

// errorSummary extracts issuanceResponse.error as a display string.
func errorSummary(r *storage.IssuanceRequest) string {
	res := gjson.GetBytes(r.IssuanceResponse, "error")
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		return unknownError
	case res.IsObject():
		if msg := res.Get("message"); msg.Exists() {
			return msg.String()
		}
		return res.Raw
	default:
		return fmt.Sprint(res.Value())
	}
}
