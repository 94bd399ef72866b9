package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token/mocks"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
)

const usersBody = `{"value":[
	{"id":"1","displayName":"Alice Smith","userPrincipalName":"alice@contoso.com","mail":"alice@contoso.com","userType":"Member","accountEnabled":true},
	{"id":"2","displayName":"Room 42","userPrincipalName":"room42@contoso.com","mail":"room42@contoso.com","userType":"Member","accountEnabled":true}
]}`

type graphStub struct {
	mu      sync.Mutex
	queries []url.Values
	status  int
}

func (g *graphStub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))
		g.mu.Lock()
		g.queries = append(g.queries, r.URL.Query())
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if g.status != 0 {
			w.WriteHeader(g.status)
			_, _ = w.Write([]byte(`{"error":{"code":"Authorization_RequestDenied","message":"Insufficient privileges"}}`))
			return
		}
		switch r.URL.Path {
		case "/v1.0/users":
			_, _ = w.Write([]byte(usersBody))
		case "/v1.0/users/1":
			_, _ = w.Write([]byte(`{"id":"1","displayName":"Alice Smith","officeLocation":"Paris","businessPhones":["+33"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"Request_ResourceNotFound","message":"not found"}}`))
		}
	})
}

func newGraphClient(t *testing.T, stub *graphStub) *Client {
	t.Helper()
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	tokens := mocks.NewMockProvider(gomock.NewController(t))
	tokens.EXPECT().AcquireToken(gomock.Any(), "https://graph.microsoft.com/.default").Return("graph-token", nil).AnyTimes()

	return NewClient(tokens, server.Client(), server.URL+"/", "https://graph.microsoft.com/.default",
		WithLimiter(rate.NewLimiter(rate.Inf, 1)), WithClientID("app-1"))
}

func TestList(t *testing.T) {
	t.Parallel()

	stub := &graphStub{}
	c := newGraphClient(t, stub)

	res, err := c.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "Alice Smith", res.Users[0].DisplayName)
	assert.Equal(t, 1, res.Filtered())

	_, err = c.List(context.Background(), "O'Brien", 5000)
	require.NoError(t, err)

	require.Len(t, stub.queries, 2)
	assert.Equal(t, "20", stub.queries[0].Get("$top"))
	assert.Equal(t, "userType eq 'Member' and accountEnabled eq true", stub.queries[0].Get("$filter"))
	assert.Equal(t, "999", stub.queries[1].Get("$top"))
	assert.Contains(t, stub.queries[1].Get("$filter"), "startswith(displayName,'O''Brien')")
	assert.Contains(t, stub.queries[1].Get("$filter"), "startswith(mail,'O''Brien')")
}

func TestSearch(t *testing.T) {
	t.Parallel()

	stub := &graphStub{}
	c := newGraphClient(t, stub)

	_, err := c.Search(context.Background(), SearchFilter{DisplayName: "Al", Department: "R&D", JobTitle: "Eng", Top: 10, Skip: 10})
	require.NoError(t, err)

	require.Len(t, stub.queries, 1)
	q := stub.queries[0]
	assert.Equal(t,
		"userType eq 'Member' and accountEnabled eq true and startswith(displayName,'Al') and department eq 'R&D' and startswith(jobTitle,'Eng')",
		q.Get("$filter"))
	assert.Equal(t, "10", q.Get("$top"))
	assert.Equal(t, "10", q.Get("$skip"))
}

func TestGet(t *testing.T) {
	t.Parallel()

	c := newGraphClient(t, &graphStub{})

	u, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", u.OfficeLocation)
	assert.Equal(t, []string{"+33"}, u.BusinessPhones)

	_, err = c.Get(context.Background(), "missing")
	assert.True(t, vcerrors.IsNotFound(err))

	_, err = c.Get(context.Background(), "")
	assert.True(t, vcerrors.IsInvalidArgument(err))
}

func TestPermissionsError(t *testing.T) {
	t.Parallel()

	c := newGraphClient(t, &graphStub{status: http.StatusForbidden})

	_, err := c.List(context.Background(), "", 0)
	require.Error(t, err)
	assert.True(t, vcerrors.IsPermissions(err))
	assert.Contains(t, err.Error(), "User.Read.All")

	help, ok := vcerrors.DetailsOf(err).(PermissionsHelp)
	require.True(t, ok)
	assert.Contains(t, help.GrantConsentURL, "app-1")
}
