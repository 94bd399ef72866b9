package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/vcadmin"
)

func TestRenderSettings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := renderSettings(&buf, []config.Setting{
		{Name: "TENANT_ID", Configured: true},
		{Name: "CLIENT_SECRET", Configured: false},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "TENANT_ID")
	assert.Contains(t, out, "configured")
	assert.Contains(t, out, "CLIENT_SECRET")
	assert.Contains(t, out, "missing")
}

func TestRenderContracts(t *testing.T) {
	t.Parallel()

	registry, err := contracts.LoadDefault()
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, renderContracts(&buf, nil, registry))
		assert.Equal(t, "No credential contracts found.\n", buf.String())
	})

	t.Run("strategy column", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, renderContracts(&buf, []vcadmin.Contract{
			{ID: "cf556239-b075-168d-f093-a3b1a388ae20", DisplayName: "Verified Employee", AuthorityID: "auth-1", Status: "Enabled"},
			{ID: "not-registered", DisplayName: "Custom", AuthorityID: "auth-1", Status: "Enabled"},
		}, registry))

		out := buf.String()
		assert.Contains(t, out, "Verified Employee")
		assert.Contains(t, out, string(contracts.KindPortalAttestation))
		assert.Contains(t, out, string(contracts.KindDefault))
	})
}

func TestRenderStrategies(t *testing.T) {
	t.Parallel()

	registry, err := contracts.Load([]byte(`
contracts:
  - id: self
    name: Self Issued
    kind: self-issued
    allowPin: false
    claims:
      surname: User
      givenName: Test
`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderStrategies(&buf, registry))

	out := buf.String()
	assert.Contains(t, out, "Self Issued")
	assert.Contains(t, out, "givenName, surname")
	assert.Contains(t, out, "no")
}

func TestJoinSorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", joinSorted(nil))
	assert.Equal(t, "a, b, c", joinSorted([]string{"c", "a", "b"}))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VIDTOOL_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("VIDTOOL_TEST_DOTENV", "from-env")
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("VIDTOOL_TEST_DOTENV"))

	require.NoError(t, os.WriteFile(path, []byte("BAD-KEY=value\n"), 0o600))
	assert.Error(t, loadDotEnv(path))
}

func TestVersionCmd_JSON(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var info versionInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestPrintIssueResult(t *testing.T) {
	t.Parallel()

	pin := "4821"
	tests := []struct {
		name    string
		res     *issuance.IssueResult
		want    []string
		notWant []string
	}{
		{
			name: "with pin",
			res: &issuance.IssueResult{
				RequestID: "req-1",
				DeepLink:  "openid-vc://?request_uri=https://example/req-1",
				Expiry:    1750000000,
				PIN:       &pin,
				Message:   "Issuance request created",
			},
			want: []string{
				"Request:   req-1",
				"Deep link: openid-vc://?request_uri=https://example/req-1",
				"PIN:       4821",
				"Expires:   2025-06-15T15:06:40Z",
				"Issuance request created",
			},
		},
		{
			name:    "without pin or expiry",
			res:     &issuance.IssueResult{RequestID: "req-2", DeepLink: "openid-vc://x", Message: "ok"},
			want:    []string{"Request:   req-2"},
			notWant: []string{"PIN:", "Expires:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			printIssueResult(&buf, tt.res)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, buf.String(), w)
			}
		})
	}
}
