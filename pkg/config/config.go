// Package config loads the issuance tool settings from the environment.
//
// Values are resolved by viper: command-line flags bound by the CLI take
// precedence, then environment variables, then the defaults registered in
// [SetDefaults]. A .env file in the working directory is loaded by the CLI
// before Load is called.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQLite = "sqlite"
)

// PlaceholderClientID is the value shipped in sample configuration files.
const PlaceholderClientID = "your-client-id-here"

// Defaults mirrored from the Microsoft Entra Verified ID service.
const (
	DefaultRequestServiceURL    = "https://verifiedid.did.msidentity.com/v1.0"
	DefaultAdminAPIEndpoint     = "https://verifiedid.did.msidentity.com/v1.0/verifiableCredentials"
	DefaultVerifiedIDScope      = "3db474b9-6a0c-4840-96ac-1fceb342124f/.default"
	DefaultGraphEndpoint        = "https://graph.microsoft.com"
	DefaultGraphScope           = "https://graph.microsoft.com/.default"
	DefaultAuthorityHost        = "https://login.microsoftonline.com"
	DefaultCallbackAPIKey       = "VID-Tool-2024"
	DefaultStoreTTL             = 10 * time.Minute
	DefaultSQLitePath           = "vidtool.db"
	DefaultPort                 = 3000
	defaultSessionSecretForDevs = "default-secret-vid-issuing-tool"
)

// Viper keys. Each key is read from the upper-cased environment variable.
const (
	KeyPort                  = "port"
	KeyBaseURL               = "base_url"
	KeyEnvironment           = "environment"
	KeyTenantID              = "tenant_id"
	KeyClientID              = "client_id"
	KeyClientSecret          = "client_secret"
	KeyIssuerAuthority       = "issuer_authority"
	KeyAdminAPIEndpoint      = "verifiable_credentials_endpoint"
	KeyRequestServiceURL     = "request_service_url"
	KeyRequestServiceScope   = "request_service_api_scope"
	KeyAdminAPIScope         = "verifiable_credentials_api_scope"
	KeyGraphEndpoint         = "graph_endpoint"
	KeyAuthorityHost         = "authority_host"
	KeyRedirectURI           = "redirect_uri"
	KeyPostLogoutRedirectURI = "post_logout_redirect_uri"
	KeyCallbackAPIKey        = "callback_api_key"
	KeySessionSecret         = "session_secret"
	KeyStoreBackend          = "store_backend"
	KeyStoreTTL              = "store_ttl"
	KeyRedisAddr             = "redis_addr"
	KeyRedisPassword         = "redis_password"
	KeyRedisDB               = "redis_db"
	KeySQLitePath            = "sqlite_path"
	KeyContractsFile         = "contracts_file"
	KeyOTLPEndpoint          = "otel_exporter_otlp_endpoint"
	KeyVersion               = "version"
)

// StoreConfig selects and configures the request store backend.
type StoreConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// Config is the resolved tool configuration.
type Config struct {
	Port        int
	BaseURL     string
	Environment string
	Version     string

	TenantID        string
	ClientID        string
	ClientSecret    string
	IssuerAuthority string

	AdminAPIEndpoint    string
	RequestServiceURL   string
	RequestServiceScope string
	AdminAPIScope       string
	GraphEndpoint       string
	AuthorityHost       string

	RedirectURI           string
	PostLogoutRedirectURI string
	CallbackAPIKey        string
	SessionSecret         string

	Store         StoreConfig
	ContractsFile string
	OTLPEndpoint  string
}

// SetDefaults registers default values on v and enables environment lookup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyEnvironment, EnvDevelopment)
	v.SetDefault(KeyAdminAPIEndpoint, DefaultAdminAPIEndpoint)
	v.SetDefault(KeyRequestServiceURL, DefaultRequestServiceURL)
	v.SetDefault(KeyRequestServiceScope, DefaultVerifiedIDScope)
	v.SetDefault(KeyAdminAPIScope, DefaultVerifiedIDScope)
	v.SetDefault(KeyGraphEndpoint, DefaultGraphEndpoint)
	v.SetDefault(KeyAuthorityHost, DefaultAuthorityHost)
	v.SetDefault(KeyCallbackAPIKey, DefaultCallbackAPIKey)
	v.SetDefault(KeyStoreBackend, StoreBackendMemory)
	v.SetDefault(KeyStoreTTL, DefaultStoreTTL)
	v.SetDefault(KeySQLitePath, DefaultSQLitePath)
	v.SetDefault(KeyVersion, "dev")
	v.AutomaticEnv()
}

// Load resolves a Config from v. SetDefaults must have been called on v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Port:                  v.GetInt(KeyPort),
		BaseURL:               strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		Environment:           strings.ToLower(v.GetString(KeyEnvironment)),
		Version:               v.GetString(KeyVersion),
		TenantID:              v.GetString(KeyTenantID),
		ClientID:              v.GetString(KeyClientID),
		ClientSecret:          v.GetString(KeyClientSecret),
		IssuerAuthority:       v.GetString(KeyIssuerAuthority),
		AdminAPIEndpoint:      strings.TrimRight(v.GetString(KeyAdminAPIEndpoint), "/"),
		RequestServiceURL:     strings.TrimRight(v.GetString(KeyRequestServiceURL), "/"),
		RequestServiceScope:   v.GetString(KeyRequestServiceScope),
		AdminAPIScope:         v.GetString(KeyAdminAPIScope),
		GraphEndpoint:         strings.TrimRight(v.GetString(KeyGraphEndpoint), "/"),
		AuthorityHost:         strings.TrimRight(v.GetString(KeyAuthorityHost), "/"),
		RedirectURI:           v.GetString(KeyRedirectURI),
		PostLogoutRedirectURI: v.GetString(KeyPostLogoutRedirectURI),
		CallbackAPIKey:        v.GetString(KeyCallbackAPIKey),
		SessionSecret:         v.GetString(KeySessionSecret),
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString(KeyStoreBackend)),
			TTL:           v.GetDuration(KeyStoreTTL),
			RedisAddr:     v.GetString(KeyRedisAddr),
			RedisPassword: v.GetString(KeyRedisPassword),
			RedisDB:       v.GetInt(KeyRedisDB),
			SQLitePath:    v.GetString(KeySQLitePath),
		},
		ContractsFile: v.GetString(KeyContractsFile),
		OTLPEndpoint:  v.GetString(KeyOTLPEndpoint),
	}

	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if c.PostLogoutRedirectURI == "" {
		c.PostLogoutRedirectURI = c.BaseURL
	}
	if c.RedirectURI == "" {
		c.RedirectURI = c.BaseURL + "/auth/callback"
	}
	if c.SessionSecret == "" && c.IsDevelopment() {
		c.SessionSecret = defaultSessionSecretForDevs
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if c.Store.RedisAddr == "" {
			return vcerrors.NewConfigurationError("REDIS_ADDR is required when STORE_BACKEND=redis", nil)
		}
	case StoreBackendSQLite:
		if c.Store.SQLitePath == "" {
			return vcerrors.NewConfigurationError("SQLITE_PATH is required when STORE_BACKEND=sqlite", nil)
		}
	default:
		return vcerrors.NewConfigurationError(fmt.Sprintf("unsupported STORE_BACKEND %q", c.Store.Backend), nil)
	}
	if c.Store.TTL <= 0 {
		return vcerrors.NewConfigurationError("STORE_TTL must be positive", nil)
	}
	if !c.IsDevelopment() && c.SessionSecret == "" {
		return vcerrors.NewConfigurationError("SESSION_SECRET is required outside development", nil)
	}
	return nil
}

// IsDevelopment reports whether the tool runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// HasServiceCredentials reports whether the client-credentials identity is usable.
func (c *Config) HasServiceCredentials() bool {
	return c.TenantID != "" && c.ClientSecret != "" && c.ClientID != "" && c.ClientID != PlaceholderClientID
}

// OIDCConfigured reports whether operator login can be offered.
func (c *Config) OIDCConfigured() bool {
	return c.HasServiceCredentials()
}

// Setting is one line of the configured/missing report.
type Setting struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Status renders the setting for display.
func (s Setting) Status() string {
	if s.Configured {
		return "configured"
	}
	return "missing"
}

// Report lists the settings required for issuance and whether each is set.
func (c *Config) Report() []Setting {
	return []Setting{
		{Name: "TENANT_ID", Configured: c.TenantID != ""},
		{Name: "CLIENT_ID", Configured: c.ClientID != "" && c.ClientID != PlaceholderClientID},
		{Name: "CLIENT_SECRET", Configured: c.ClientSecret != ""},
		{Name: "ISSUER_AUTHORITY", Configured: c.IssuerAuthority != ""},
		{Name: "VERIFIABLE_CREDENTIALS_ENDPOINT", Configured: c.AdminAPIEndpoint != ""},
		{Name: "REQUEST_SERVICE_URL", Configured: c.RequestServiceURL != ""},
	}
}

// Missing returns the names of unset required settings.
func (c *Config) Missing() []string {
	var missing []string
	for _, s := range c.Report() {
		if !s.Configured {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// ReportMap is Report keyed by setting name, as rendered by the admin API.
func (c *Config) ReportMap() map[string]string {
	out := make(map[string]string, 6)
	for _, s := range c.Report() {
		out[s.Name] = s.Status()
	}
	return out
}
