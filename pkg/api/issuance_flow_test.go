package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/api"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth/token"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/callback"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/session"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/stats"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

const (
	verifiedEmployee = "cf556239-b075-168d-f093-a3b1a388ae20"
	flowCallbackKey  = "flow-test-key"
	flowAccessToken  = "at-flow"
)

// fakeEntra serves the token endpoint and both createIssuanceRequest locations.
type fakeEntra struct {
	server *httptest.Server

	mu             sync.Mutex
	primaryMissing bool
	rejectPIN      bool
	payloads       []contracts.Payload
	paths          []string
}

func newFakeEntra() *fakeEntra {
	f := &fakeEntra{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": flowAccessToken, "token_type": "Bearer", "expires_in": 3600,
		})
	})
	mux.HandleFunc("POST /v1.0/verifiableCredentials/createIssuanceRequest", f.create(true))
	mux.HandleFunc("POST /v1.0/createIssuanceRequest", f.create(false))
	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeEntra) create(primary bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+flowAccessToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "unauthorized"}})
			return
		}
		var p contracts.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": err.Error()}})
			return
		}

		f.mu.Lock()
		f.payloads = append(f.payloads, p)
		f.paths = append(f.paths, r.URL.Path)
		primaryMissing, rejectPIN := f.primaryMissing, f.rejectPIN
		f.mu.Unlock()

		if primary && primaryMissing {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "notFound", "message": "Resource not found"},
			})
			return
		}
		if rejectPIN && p.PIN != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{
					"code":       "badRequest",
					"message":    "The request is invalid.",
					"innererror": map[string]any{"code": "pinNotSupported", "target": "pin"},
				},
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"requestId": "svc-" + p.Callback.State,
			"url":       "openid-vc://?request_uri=https://verifiedid.did.msidentity.com/v1.0/requests/" + p.Callback.State,
			"expiry":    1750000000,
		})
	}
}

func (f *fakeEntra) received() ([]contracts.Payload, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contracts.Payload(nil), f.payloads...), append([]string(nil), f.paths...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFlowRouter(f *fakeEntra) http.Handler {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range map[string]any{
		config.KeyTenantID:          "tenant-1",
		config.KeyClientID:          "client-1",
		config.KeyClientSecret:      "secret-1",
		config.KeyIssuerAuthority:   "did:web:contoso.com",
		config.KeyRequestServiceURL: f.server.URL + "/v1.0",
		config.KeyAuthorityHost:     f.server.URL,
		config.KeyBaseURL:           "https://vid.contoso.test",
		config.KeyCallbackAPIKey:    flowCallbackKey,
	} {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	Expect(err).ToNot(HaveOccurred())

	store := storage.NewMemoryStore(cfg.Store.TTL)
	DeferCleanup(store.Close)

	registry, err := contracts.LoadDefault()
	Expect(err).ToNot(HaveOccurred())

	httpClient := f.server.Client()
	tokens := token.NewClientCredentialsProvider(token.CredentialsFromConfig(cfg), httpClient)
	orchestrator := issuance.NewOrchestrator(issuance.SettingsFromConfig(cfg), tokens,
		issuance.NewRequestServiceClient(httpClient), registry, store)

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.BaseURL)
	Expect(err).ToNot(HaveOccurred())

	return api.NewRouter(api.Deps{
		Config:    cfg,
		Issuer:    orchestrator,
		Callbacks: callback.NewHandler(store),
		Store:     store,
		Stats:     stats.NewAggregator(store, cfg),
		Sessions:  sessions,
		Guard:     session.NewGuard(sessions, true),
	})
}

func call(h http.Handler, method, path string, body any, headers map[string]string) (int, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).ToNot(HaveOccurred())
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	}
	return rec.Code, out
}

func issue(h http.Handler) string {
	status, body := call(h, http.MethodPost, "/api/credentials/issue", map[string]any{
		"credentialType": verifiedEmployee,
		"userId":         "user-1",
		"userEmail":      "user-1@contoso.test",
	}, nil)
	Expect(status).To(Equal(http.StatusOK), "issue response: %v", body)
	Expect(body).To(HaveKeyWithValue("success", true))
	Expect(body["requestId"]).To(BeAssignableToTypeOf(""))
	return body["requestId"].(string)
}

func requestStatus(h http.Handler, id string) string {
	status, body := call(h, http.MethodGet, "/api/credentials/status/"+id, nil, nil)
	Expect(status).To(Equal(http.StatusOK))
	return body["status"].(string)
}

func postCallback(h http.Handler, body map[string]any, apiKey string) int {
	headers := map[string]string{}
	if apiKey != "" {
		headers["api-key"] = apiKey
	}
	status, _ := call(h, http.MethodPost, "/api/credentials/callback", body, headers)
	return status
}

var _ = Describe("Credential issuance", Label("api", "issuance"), func() {
	var (
		fake   *fakeEntra
		router http.Handler
	)

	BeforeEach(func() {
		fake = newFakeEntra()
		DeferCleanup(fake.server.Close)
		router = newFlowRouter(fake)
	})

	It("tracks a request from submission to completion", func() {
		By("issuing a credential")
		status, body := call(router, http.MethodPost, "/api/credentials/issue", map[string]any{
			"credentialType": verifiedEmployee,
			"userId":         "user-1",
		}, nil)
		Expect(status).To(Equal(http.StatusOK))
		id := body["requestId"].(string)
		Expect(body["qrCodeUrl"]).To(HavePrefix("data:image/png;base64,"))
		Expect(body["deepLink"]).To(HaveSuffix(id))
		Expect(body["pin"]).To(MatchRegexp(`^\d{4}$`))

		By("checking the payload sent to the Request Service")
		payloads, paths := fake.received()
		Expect(paths).To(Equal([]string{"/v1.0/verifiableCredentials/createIssuanceRequest"}))
		wantCallback := contracts.Callback{
			URL:     "https://vid.contoso.test/api/credentials/callback",
			State:   id,
			Headers: map[string]string{"api-key": flowCallbackKey},
		}
		Expect(cmp.Diff(wantCallback, payloads[0].Callback)).To(BeEmpty())
		Expect(payloads[0].Claims).To(BeNil())
		Expect(payloads[0].PIN).ToNot(BeNil())

		Expect(requestStatus(router, id)).To(Equal(string(storage.StatusPending)))

		By("receiving the wallet callback")
		Expect(postCallback(router, map[string]any{
			"requestId":     "svc-" + id,
			"requestStatus": storage.CodeRequestRetrieved,
			"state":         id,
		}, flowCallbackKey)).To(Equal(http.StatusOK))

		Expect(requestStatus(router, id)).To(Equal(string(storage.StatusCompleted)))

		By("reading the statistics")
		status, body = call(router, http.MethodGet, "/api/admin/stats", nil, nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["stats"]).To(SatisfyAll(
			HaveKeyWithValue("totalRequests", BeNumerically("==", 1)),
			HaveKeyWithValue("completedRequests", BeNumerically("==", 1)),
			HaveKeyWithValue("pendingRequests", BeNumerically("==", 0)),
		))
	})

	It("marks the request failed when the wallet reports an error", func() {
		id := issue(router)

		Expect(postCallback(router, map[string]any{
			"requestStatus": "issuance_error",
			"state":         id,
			"error":         map[string]any{"code": "IssuanceFlowFailed", "message": "user cancelled"},
		}, flowCallbackKey)).To(Equal(http.StatusOK))

		Expect(requestStatus(router, id)).To(Equal(string(storage.StatusError)))

		By("ignoring a late success callback")
		Expect(postCallback(router, map[string]any{
			"requestStatus": storage.CodeRequestRetrieved,
			"state":         id,
		}, flowCallbackKey)).To(Equal(http.StatusOK))
		Expect(requestStatus(router, id)).To(Equal(string(storage.StatusError)))
	})

	It("rejects callbacks without the api key", func() {
		id := issue(router)

		Expect(postCallback(router, map[string]any{
			"requestStatus": storage.CodeRequestRetrieved,
			"state":         id,
		}, "")).To(Equal(http.StatusUnauthorized))
		Expect(postCallback(router, map[string]any{
			"requestStatus": storage.CodeRequestRetrieved,
			"state":         id,
		}, "wrong-key")).To(Equal(http.StatusUnauthorized))

		Expect(requestStatus(router, id)).To(Equal(string(storage.StatusPending)))
	})

	Context("when the primary endpoint does not exist", func() {
		BeforeEach(func() {
			fake.primaryMissing = true
		})

		It("submits to the alternate endpoint", func() {
			issue(router)

			payloads, paths := fake.received()
			Expect(paths).To(Equal([]string{
				"/v1.0/verifiableCredentials/createIssuanceRequest",
				"/v1.0/createIssuanceRequest",
			}))
			Expect(payloads[1].PIN).ToNot(BeNil(), "the PIN choice carries over to the alternate endpoint")
		})
	})

	Context("when the contract does not accept a PIN", func() {
		BeforeEach(func() {
			fake.rejectPIN = true
		})

		It("retries without a PIN", func() {
			status, body := call(router, http.MethodPost, "/api/credentials/issue", map[string]any{
				"credentialType": verifiedEmployee,
				"userId":         "user-1",
			}, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["pin"]).To(BeNil())

			payloads, _ := fake.received()
			Expect(payloads).To(HaveLen(2))
			Expect(payloads[0].PIN).ToNot(BeNil())
			Expect(payloads[1].PIN).To(BeNil())
		})
	})

	It("returns 404 for unknown requests", func() {
		status, body := call(router, http.MethodGet, "/api/credentials/status/does-not-exist", nil, nil)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(HaveKeyWithValue("error", "Request not found or expired"))
	})
})
