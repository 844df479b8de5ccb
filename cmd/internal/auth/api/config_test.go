package authapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, TransportCookie, cfg.RefreshTransport)
	assert.Equal(t, "rt", cfg.RefreshCookieName)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PM_AUTH_REFRESH_TRANSPORT", "BODY")
	t.Setenv("PM_AUTH_REFRESH_COOKIE_NAME", "pm_rt")
	t.Setenv("PM_AUTH_COOKIE_SAMESITE", "lax")
	t.Setenv("PM_AUTH_COOKIE_SECURE", "false")
	t.Setenv("PM_AUTH_TRUST_PROXY", "true")
	t.Setenv("PM_AUTH_MAX_BODY_BYTES", "2048")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, TransportBody, cfg.RefreshTransport)
	assert.False(t, cfg.CookieMode())
	assert.Equal(t, "pm_rt", cfg.RefreshCookieName)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	assert.False(t, cfg.CookieSecure)
	assert.True(t, cfg.TrustProxy)
	assert.EqualValues(t, 2048, cfg.MaxBodyBytes)
}

func TestLoadConfigFromEnv_Rejects(t *testing.T) {
	tests := map[string][2]string{
		"transport":      {"PM_AUTH_REFRESH_TRANSPORT", "header"},
		"samesite":       {"PM_AUTH_COOKIE_SAMESITE", "sometimes"},
		"secure":         {"PM_AUTH_COOKIE_SECURE", "maybe"},
		"max body bytes": {"PM_AUTH_MAX_BODY_BYTES", "-1"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfigFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromEnv_SameSiteNoneNeedsSecure(t *testing.T) {
	t.Setenv("PM_AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("PM_AUTH_COOKIE_SECURE", "false")

	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}
