package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timetrack-gateway/internal/common/errors"
)

var testEnvVars = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "METRICS_ENABLED",
	"DASHBOARD_URL", "DOWNLOADS_URL", "GATEWAY_MACHINE_AUTH_BACKENDS", "UPSTREAM_TIMEOUT",
	"IDENTITY_TOKEN_URL", "IDENTITY_CLIENT_ID", "IDENTITY_CLIENT_SECRET", "IDENTITY_AUDIENCE",
	"IDENTITY_SCOPES", "IDENTITY_HTTP_TIMEOUT", "CREDENTIALS_RETRY_INTERVAL", "CREDENTIALS_FETCH_TIMEOUT",
	"JWT_SECRET", "JWT_ISSUER",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_DEFAULT", "RATE_LIMIT_WINDOW", "GATEWAY_TRUSTED_PROXIES",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
}

// clearTestEnvVars blanks every variable Load reads. t.Setenv restores the
// previous values when the test ends.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range testEnvVars {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DASHBOARD_URL", "http://dashboard:3000")
	t.Setenv("IDENTITY_TOKEN_URL", "https://idp.example.com/oauth/token")
	t.Setenv("IDENTITY_CLIENT_ID", "gateway")
	t.Setenv("IDENTITY_CLIENT_SECRET", "s3cret")
	t.Setenv("JWT_SECRET", strings.Repeat("k", 32))
}

func TestLoad_Defaults(t *testing.T) {
	clearTestEnvVars(t)

	c := Load()

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, "INFO", c.LogLevel)
	assert.Equal(t, "console", c.LogFormat)
	assert.Empty(t, c.LogFile)
	assert.True(t, c.MetricsEnabled)

	assert.Empty(t, c.DashboardURL)
	assert.Empty(t, c.DownloadsURL)
	assert.Empty(t, c.MachineAuthBackends)
	assert.Equal(t, 30*time.Second, c.UpstreamTimeout)

	assert.Equal(t, 30*time.Second, c.IdentityHTTPTimeout)
	assert.Equal(t, 10*time.Second, c.CredentialsRetryInterval)
	assert.Equal(t, 15*time.Second, c.CredentialsFetchTimeout)
	assert.Empty(t, c.IdentityScopes)

	assert.True(t, c.RateLimitEnabled)
	assert.Equal(t, 100, c.RateLimitDefault)
	assert.Equal(t, 60*time.Second, c.RateLimitWindow)
	assert.Empty(t, c.TrustedProxies)

	assert.Empty(t, c.RedisAddress)
	assert.False(t, c.RedisEnabled())
	assert.Equal(t, 0, c.RedisDB)
	assert.Equal(t, 10, c.RedisPoolSize)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearTestEnvVars(t)
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("DOWNLOADS_URL", "https://cdn.example.com/files/")
	t.Setenv("GATEWAY_MACHINE_AUTH_BACKENDS", "downloads, dashboard")
	t.Setenv("IDENTITY_SCOPES", "read:files write:files,admin")
	t.Setenv("CREDENTIALS_RETRY_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("GATEWAY_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	c := Load()
	require.NoError(t, c.Validate())

	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.False(t, c.MetricsEnabled)
	assert.Equal(t, "https://cdn.example.com/files/", c.DownloadsURL)
	assert.Equal(t, []string{"downloads", "dashboard"}, c.MachineAuthBackends)
	assert.True(t, c.MachineAuthEnabled(BackendDownloads))
	assert.True(t, c.MachineAuthEnabled(BackendDashboard))
	assert.Equal(t, []string{"read:files", "write:files", "admin"}, c.IdentityScopes)
	assert.Equal(t, 2*time.Second, c.CredentialsRetryInterval)
	assert.False(t, c.RateLimitEnabled)
	assert.True(t, c.RedisEnabled())
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, c.TrustedProxies)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_GET_ENV", "  value  ")
	assert.Equal(t, "value", getEnv("TEST_GET_ENV", "default"))

	t.Setenv("TEST_GET_ENV", "")
	assert.Equal(t, "default", getEnv("TEST_GET_ENV", "default"))

	os.Unsetenv("TEST_GET_ENV_MISSING")
	assert.Equal(t, "fallback", getEnv("TEST_GET_ENV_MISSING", "fallback"))
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"TRUE", false, true},
		{"false", true, false},
		{"0", true, false},
		{"f", true, false},
		{"yes", true, true},
		{"yes", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL_ENV", tt.value)
			assert.Equal(t, tt.want, getBoolEnv("TEST_BOOL_ENV", tt.defaultValue))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"valid minimal", nil, ""},
		{"missing dashboard", map[string]string{"DASHBOARD_URL": ""}, "DASHBOARD_URL"},
		{"relative dashboard", map[string]string{"DASHBOARD_URL": "dashboard:3000"}, "DASHBOARD_URL"},
		{"dashboard with query", map[string]string{"DASHBOARD_URL": "http://dashboard?x=1"}, "DASHBOARD_URL"},
		{"bad downloads", map[string]string{"DOWNLOADS_URL": "files"}, "DOWNLOADS_URL"},
		{"missing token url", map[string]string{"IDENTITY_TOKEN_URL": ""}, "IDENTITY_TOKEN_URL"},
		{"missing client id", map[string]string{"IDENTITY_CLIENT_ID": ""}, "IDENTITY_CLIENT_ID"},
		{"missing client secret", map[string]string{"IDENTITY_CLIENT_SECRET": ""}, "IDENTITY_CLIENT_SECRET"},
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"short jwt secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"port not a number", map[string]string{"PORT": "http"}, "PORT must be a whole number"},
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}, "LOG_LEVEL"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad duration", map[string]string{"RATE_LIMIT_WINDOW": "soon"}, "RATE_LIMIT_WINDOW must be a valid duration"},
		{"zero retry interval", map[string]string{"CREDENTIALS_RETRY_INTERVAL": "0s"}, "CREDENTIALS_RETRY_INTERVAL"},
		{"zero rate limit", map[string]string{"RATE_LIMIT_DEFAULT": "0"}, "RATE_LIMIT_DEFAULT"},
		{"redis db out of range", map[string]string{"REDIS_ADDRESS": "redis:6379", "REDIS_DB": "16"}, "REDIS_DB"},
		{"redis without port", map[string]string{"REDIS_ADDRESS": "redis"}, "REDIS_ADDRESS"},
		{"trusted proxy hostname", map[string]string{"GATEWAY_TRUSTED_PROXIES": "lb.internal"}, "GATEWAY_TRUSTED_PROXIES"},
		{"trusted proxies valid", map[string]string{"GATEWAY_TRUSTED_PROXIES": "10.0.0.0/8,2001:db8::1"}, ""},
		{"unknown machine auth backend", map[string]string{"GATEWAY_MACHINE_AUTH_BACKENDS": "billing"}, "GATEWAY_MACHINE_AUTH_BACKENDS"},
		{"machine auth downloads without url", map[string]string{"GATEWAY_MACHINE_AUTH_BACKENDS": "downloads"}, "DOWNLOADS_URL is not set"},
		{"machine auth downloads with url", map[string]string{
			"GATEWAY_MACHINE_AUTH_BACKENDS": "downloads",
			"DOWNLOADS_URL":                 "http://files:8000",
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnvVars(t)
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEverything(t *testing.T) {
	clearTestEnvVars(t)

	err := Load().Validate()
	require.Error(t, err)
	for _, key := range []string{"DASHBOARD_URL", "IDENTITY_TOKEN_URL", "IDENTITY_CLIENT_ID", "IDENTITY_CLIENT_SECRET", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
}

func BenchmarkLoad(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Load()
	}
}
