package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validation-portal/portal-client/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600), "failed to write config")
	return path
}

func TestGetConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		path := writeConfig(t, "endpoint:\n  base_url: https://portal.example.com/api\n")

		c, err := config.GetConfig(path)
		require.NoError(t, err, "failed to load config")

		assert.Equal(t, "https://portal.example.com/api", c.Endpoint.BaseURL)
		assert.Zero(t, c.Endpoint.Timeout)
		assert.Equal(t, "file", c.Session.Backend)
		assert.NotEmpty(t, c.Session.File)
		assert.Equal(t, "localhost:6379", c.Session.Redis.Addr)
		assert.Equal(t, ".", c.Download.Dir)
		assert.Equal(t, "Validation_Report.pdf", c.Download.DefaultFilename)
		assert.False(t, c.Archive.Enabled)
		assert.True(t, c.Logging.Audit)
		assert.Equal(t, 3, c.API.RetryMax)
	})

	t.Run("File", func(t *testing.T) {
		path := writeConfig(t, `
endpoint:
  base_url: https://portal.example.com
  timeout: 2m
session:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
download:
  dir: /tmp/reports
archive:
  enabled: true
  backend: azure
  azure:
    account_name: devstoreaccount1
    account_key: a2V5
    service_url: http://127.0.0.1:10000/devstoreaccount1
    container: reports
`)

		c, err := config.GetConfig(path)
		require.NoError(t, err, "failed to load config")

		assert.Equal(t, 2*time.Minute, c.Endpoint.Timeout)
		assert.Equal(t, "redis", c.Session.Backend)
		assert.Equal(t, "redis:6379", c.Session.Redis.Addr)
		assert.Equal(t, 2, c.Session.Redis.DB)
		assert.Equal(t, "/tmp/reports", c.Download.Dir)
		assert.Equal(t, "reports", c.Archive.Azure.Container)
	})

	t.Run("Env", func(t *testing.T) {
		path := writeConfig(t, "endpoint:\n  base_url: https://portal.example.com\n")
		t.Setenv("VALIDATIONPORTAL_ENDPOINT_BASE_URL", "https://staging.example.com")
		t.Setenv("VALIDATIONPORTAL_OPERATOR", "alice")
		t.Setenv("VALIDATIONPORTAL_API_RETRY_MAX", "0")

		c, err := config.GetConfig(path)
		require.NoError(t, err, "failed to load config")

		assert.Equal(t, "https://staging.example.com", c.Endpoint.BaseURL)
		assert.Equal(t, "alice", c.Operator)
		assert.Equal(t, 0, c.API.RetryMax)
	})

	t.Run("MissingBaseURL", func(t *testing.T) {
		path := writeConfig(t, "download:\n  dir: .\n")

		_, err := config.GetConfig(path)
		require.Error(t, err, "base url is required")
	})

	t.Run("InvalidSessionBackend", func(t *testing.T) {
		path := writeConfig(t, "endpoint:\n  base_url: https://portal.example.com\nsession:\n  backend: sqlite\n")

		_, err := config.GetConfig(path)
		require.Error(t, err)
	})

	t.Run("IncompleteArchive", func(t *testing.T) {
		path := writeConfig(t, `
endpoint:
  base_url: https://portal.example.com
archive:
  enabled: true
  minio:
    endpoint: localhost:9000
`)

		_, err := config.GetConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minio")
	})
}

func TestURLs(t *testing.T) {
	c := &config.Config{Endpoint: &config.EndpointConfig{BaseURL: "https://portal.example.com/api/"}}

	tt := map[string]struct {
		fn       func() (string, error)
		expected string
	}{
		"Validate":     {fn: c.ValidateURL, expected: "https://portal.example.com/api/validate/"},
		"Token":        {fn: c.TokenURL, expected: "https://portal.example.com/api/token/"},
		"TokenRefresh": {fn: c.TokenRefreshURL, expected: "https://portal.example.com/api/token/refresh/"},
		"Reports":      {fn: c.ReportsURL, expected: "https://portal.example.com/api/reports/self/"},
		"DeleteReport": {fn: c.DeleteReportURL, expected: "https://portal.example.com/api/delete-report/"},
		"ResetCreds":   {fn: c.ResetCredentialsURL, expected: "https://portal.example.com/api/reset-cred/"},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			u, err := tc.fn()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u)
		})
	}
}
