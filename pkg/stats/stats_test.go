package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage/mocks"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeInspector struct{}

func (fakeInspector) Memory(context.Context) (Memory, error) { return Memory{RSS: 42}, nil }
func (fakeInspector) Platform(context.Context) (string, string) { return "linux", "host-1" }

// seed stores n records per status, one minute apart, newest last.
func seed(t *testing.T, store storage.RequestStore, counts map[storage.Status]int) {
	t.Helper()
	i := 0
	for _, status := range []storage.Status{storage.StatusPending, storage.StatusCompleted, storage.StatusError} {
		for range counts[status] {
			rec := storage.NewIssuanceRequest(fmt.Sprintf("req-%02d", i), "contract-a", "u", "u@x",
				json.RawMessage(`{"requestId":"up"}`), false, base.Add(time.Duration(i)*time.Minute))
			if status != storage.StatusPending {
				code := storage.CodeRequestRetrieved
				if status == storage.StatusError {
					code = "issuance_error"
				}
				require.NoError(t, rec.Resolve(code, json.RawMessage(`{"requestStatus":"`+code+`"}`), base))
			}
			require.NoError(t, store.Put(context.Background(), rec))
			i++
		}
	}
}

func newAggregator(t *testing.T, env string) (*Aggregator, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	a := NewAggregator(store, &config.Config{Environment: env, Version: "1.2.3", TenantID: "t"})
	a.host = fakeInspector{}
	a.now = func() time.Time { return base.Add(time.Hour) }
	a.started = base
	return a, store
}

func TestStats_CountsMatchTally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts map[storage.Status]int
	}{
		{name: "empty", counts: map[storage.Status]int{}},
		{name: "mixed", counts: map[storage.Status]int{storage.StatusPending: 3, storage.StatusCompleted: 2, storage.StatusError: 1}},
		{name: "many", counts: map[storage.Status]int{storage.StatusPending: 7, storage.StatusCompleted: 5, storage.StatusError: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, store := newAggregator(t, config.EnvProduction)
			seed(t, store, tt.counts)

			s, err := a.Stats(context.Background())
			require.NoError(t, err)

			total := tt.counts[storage.StatusPending] + tt.counts[storage.StatusCompleted] + tt.counts[storage.StatusError]
			assert.Equal(t, total, s.Total)
			assert.Equal(t, tt.counts[storage.StatusPending], s.Pending)
			assert.Equal(t, tt.counts[storage.StatusCompleted], s.Completed)
			assert.Equal(t, tt.counts[storage.StatusError], s.Error)
			assert.Equal(t, s.Total, s.Pending+s.Completed+s.Error)
			assert.Len(t, s.RecentActivity, min(total, RecentActivityLimit))

			for i := 1; i < len(s.RecentActivity); i++ {
				assert.False(t, s.RecentActivity[i].CreatedAt.After(s.RecentActivity[i-1].CreatedAt))
			}
		})
	}
}

func TestLogs(t *testing.T) {
	t.Parallel()

	a, store := newAggregator(t, config.EnvProduction)
	seed(t, store, map[storage.Status]int{storage.StatusPending: 3, storage.StatusError: 2})
	require.NoError(t, store.Put(context.Background(),
		storage.NewIssuanceRequest("other", "contract-b", "u", "", nil, false, base.Add(-time.Hour))))

	logs, err := a.Logs(context.Background(), LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 6)
	assert.Equal(t, "req-04", logs[0].RequestID)
	for _, l := range logs {
		assert.Nil(t, l.IssuanceResponse, "issuance response hidden outside development")
	}

	logs, err = a.Logs(context.Background(), LogFilter{Status: storage.StatusError})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = a.Logs(context.Background(), LogFilter{CredentialType: "contract-b"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "other", logs[0].RequestID)

	logs, err = a.Logs(context.Background(), LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestLogs_DevelopmentKeepsIssuanceResponse(t *testing.T) {
	t.Parallel()

	a, store := newAggregator(t, config.EnvDevelopment)
	seed(t, store, map[storage.Status]int{storage.StatusPending: 1})

	logs, err := a.Logs(context.Background(), LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"requestId":"up"}`, string(logs[0].IssuanceResponse))
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	a, store := newAggregator(t, config.EnvProduction)
	// now is base+1h; records sit at base+0..4m.
	seed(t, store, map[storage.Status]int{storage.StatusPending: 5})

	n, err := a.Cleanup(context.Background(), 57*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "records created before base+3m are removed")

	_, err = a.Cleanup(context.Background(), -time.Hour)
	assert.True(t, vcerrors.IsInvalidArgument(err))

	remaining, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	n, err = a.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "zero age removes everything created before now")
}

func TestTroubleshoot(t *testing.T) {
	t.Parallel()

	a, store := newAggregator(t, config.EnvProduction)
	seed(t, store, map[storage.Status]int{storage.StatusPending: 8, storage.StatusError: 7})

	withErr := storage.NewIssuanceRequest("failed", "c", "u", "", json.RawMessage(`{"error":{"message":"boom"}}`), false, base.Add(time.Hour))
	require.NoError(t, withErr.Resolve("issuance_error", nil, base))
	require.NoError(t, store.Put(context.Background(), withErr))

	report, err := a.Troubleshoot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 16, report.CacheStatus.TotalEntries)
	assert.Equal(t, 8, report.CacheStatus.ErrorEntries)
	assert.Len(t, report.CacheStatus.CacheKeys, CacheKeysLimit)
	require.Len(t, report.RecentErrors, RecentErrorsLimit)
	assert.Equal(t, "failed", report.RecentErrors[0].RequestID)
	assert.Equal(t, "boom", report.RecentErrors[0].Error)
	assert.Equal(t, "Unknown error", report.RecentErrors[1].Error)

	assert.Equal(t, "1.2.3", report.Environment.Version)
	assert.Equal(t, "linux", report.Environment.Platform)
	assert.Equal(t, uint64(42), report.Environment.Memory.RSS)
	assert.InDelta(t, 3600, report.Environment.Uptime, 0.001)
	assert.True(t, report.StoreHealthy)
	assert.Equal(t, "configured", report.Configuration["TENANT_ID"])
	assert.Equal(t, "missing", report.Configuration["CLIENT_SECRET"])
}

func TestStoreFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRequestStore(ctrl)
	store.EXPECT().List(gomock.Any()).Return(nil, errors.New("unavailable")).Times(3)
	store.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any()).Return(0, errors.New("unavailable"))

	a := NewAggregator(store, &config.Config{})

	_, err := a.Stats(context.Background())
	assert.Equal(t, 500, vcerrors.Code(err))
	_, err = a.Logs(context.Background(), LogFilter{})
	assert.Error(t, err)
	_, err = a.Troubleshoot(context.Background())
	assert.Error(t, err)
	_, err = a.Cleanup(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestErrorSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body string
		want string
	}{
		{body: ``, want: "Unknown error"},
		{body: `{"error":null}`, want: "Unknown error"},
		{body: `{"error":"plain"}`, want: "plain"},
		{body: `{"error":{"message":"nested"}}`, want: "nested"},
		{body: `{"error":{"code":"x"}}`, want: `{"code":"x"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorSummary(&storage.IssuanceRequest{IssuanceResponse: json.RawMessage(tt.body)}))
	}
}

func TestTestConfig(t *testing.T) {
	t.Parallel()

	r := TestConfig(&config.Config{TenantID: "t", ClientID: "c", ClientSecret: "s", IssuerAuthority: "did:web:x",
		AdminAPIEndpoint: "https://a", RequestServiceURL: "https://r"})
	assert.True(t, r.AllConfigured)
	assert.Equal(t, "Configuration complete", r.Status)

	r = TestConfig(&config.Config{ClientID: config.PlaceholderClientID})
	assert.False(t, r.AllConfigured)
	assert.Equal(t, "Incomplete configuration", r.Status)
	assert.Contains(t, r.MissingEntries, "CLIENT_ID")
}
