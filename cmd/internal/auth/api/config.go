package authapi

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	authv1 "projectmanager/shared/contracts/auth/v1"
)

// Refresh token transports. Exactly one is active per deployment.
const (
	TransportCookie = "cookie"
	TransportBody   = "body"
)

// Config controls how the auth endpoints carry refresh tokens and read requests.
type Config struct {
	// RefreshTransport is TransportCookie (HttpOnly cookie, never in the body)
	// or TransportBody (JSON field, for clients that cannot hold cookies).
	RefreshTransport string

	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64
}

// DefaultConfig returns cookie transport with Secure + SameSite=Strict cookies.
func DefaultConfig() Config {
	return Config{
		RefreshTransport:  TransportCookie,
		RefreshCookieName: authv1.DefaultRefreshCookieName,
		CookiePath:        "/auth",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteStrictMode,
		MaxBodyBytes:      1 << 20, // 1 MiB
	}
}

// CookieMode reports whether refresh tokens travel in a cookie.
func (c Config) CookieMode() bool { return c.RefreshTransport == TransportCookie }

// LoadConfigFromEnv loads auth API config from environment variables.
//
//   - PM_AUTH_REFRESH_TRANSPORT (cookie | body)
//   - PM_AUTH_REFRESH_COOKIE_NAME
//   - PM_AUTH_COOKIE_PATH, PM_AUTH_COOKIE_DOMAIN
//   - PM_AUTH_COOKIE_SECURE (true/false)
//   - PM_AUTH_COOKIE_SAMESITE (strict | lax | none)
//   - PM_AUTH_TRUST_PROXY (true/false)
//   - PM_AUTH_MAX_BODY_BYTES
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := envString("PM_AUTH_REFRESH_TRANSPORT"); v != "" {
		switch t := strings.ToLower(v); t {
		case TransportCookie, TransportBody:
			cfg.RefreshTransport = t
		default:
			return Config{}, fmt.Errorf("PM_AUTH_REFRESH_TRANSPORT: unsupported value %q", v)
		}
	}
	if v := envString("PM_AUTH_REFRESH_COOKIE_NAME"); v != "" {
		cfg.RefreshCookieName = v
	}
	if v := envString("PM_AUTH_COOKIE_PATH"); v != "" {
		cfg.CookiePath = v
	}
	cfg.CookieDomain = envString("PM_AUTH_COOKIE_DOMAIN")

	var err error
	if cfg.CookieSecure, err = envBool("PM_AUTH_COOKIE_SECURE", cfg.CookieSecure); err != nil {
		return Config{}, err
	}
	if cfg.TrustProxy, err = envBool("PM_AUTH_TRUST_PROXY", cfg.TrustProxy); err != nil {
		return Config{}, err
	}

	if v := envString("PM_AUTH_COOKIE_SAMESITE"); v != "" {
		switch strings.ToLower(v) {
		case "strict":
			cfg.CookieSameSite = http.SameSiteStrictMode
		case "lax":
			cfg.CookieSameSite = http.SameSiteLaxMode
		case "none":
			cfg.CookieSameSite = http.SameSiteNoneMode
		default:
			return Config{}, fmt.Errorf("PM_AUTH_COOKIE_SAMESITE: unsupported value %q", v)
		}
	}

	if v := envString("PM_AUTH_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("PM_AUTH_MAX_BODY_BYTES: must be a positive integer")
		}
		cfg.MaxBodyBytes = n
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode && !cfg.CookieSecure {
		return Config{}, fmt.Errorf("PM_AUTH_COOKIE_SAMESITE=none requires PM_AUTH_COOKIE_SECURE=true")
	}
	return cfg, nil
}

func envString(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func envBool(key string, def bool) (bool, error) {
	v := envString(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean", key)
	}
	return b, nil
}
