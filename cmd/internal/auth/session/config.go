package session

import (
	"os"
	"strconv"
	"strings"
	"time"

	"projectmanager/cmd/security/token"
)

// Access token formats.
const (
	FormatJWT    = "jwt"
	FormatPaseto = "paseto"
)

// MinSecretBytes is the shortest signing secret accepted.
const MinSecretBytes = 32

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer and Audience are stamped into access tokens and required on verify.
	Issuer   string
	Audience string

	// Secret is the symmetric signing secret for access tokens.
	Secret string

	// AccessTokenFormat selects the codec: FormatJWT or FormatPaseto.
	AccessTokenFormat string

	// AccessTokenTTL may be zero, which yields tokens that are already expired.
	AccessTokenTTL time.Duration

	RefreshTokenTTL time.Duration

	// ClockSkew is the leeway applied to time-based claims on verify.
	ClockSkew time.Duration

	// RefreshTokenBytes is the entropy of opaque refresh tokens.
	RefreshTokenBytes int

	// EmailCaseInsensitive folds emails to lower case before storage and lookup.
	EmailCaseInsensitive bool
}

// DefaultConfig returns defaults matching the reference deployment:
// 30 minute access tokens, 7 day refresh tokens and 30 seconds of skew.
// Secret is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Issuer:            "projectmanager",
		Audience:          "projectmanager-web",
		AccessTokenFormat: FormatJWT,
		AccessTokenTTL:    30 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: token.DefaultBytes,
	}
}

// Validate checks invariants shared by env and programmatic configuration.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Issuer) == "", strings.TrimSpace(c.Audience) == "":
		return ErrConfig
	case len(c.Secret) < MinSecretBytes:
		return ErrConfig
	case c.AccessTokenFormat != FormatJWT && c.AccessTokenFormat != FormatPaseto:
		return ErrConfig
	case c.AccessTokenTTL < 0, c.RefreshTokenTTL <= 0, c.ClockSkew < 0:
		return ErrConfig
	case c.RefreshTokenBytes < token.MinBytes || c.RefreshTokenBytes > token.MaxBytes:
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - PM_AUTH_SECRET (at least 32 bytes)
//
// Optional:
//   - PM_AUTH_ISSUER
//   - PM_AUTH_AUDIENCE
//   - PM_AUTH_ACCESS_TOKEN_FORMAT (jwt | paseto)
//   - PM_AUTH_ACCESS_TOKEN_MINUTES (0 allowed)
//   - PM_AUTH_REFRESH_TOKEN_DAYS
//   - PM_AUTH_CLOCK_SKEW (Go duration)
//   - PM_AUTH_REFRESH_TOKEN_BYTES (64..128)
//   - PM_AUTH_EMAIL_CASE_INSENSITIVE (true/false)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("PM_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("PM_AUTH_AUDIENCE")); v != "" {
		cfg.Audience = v
	}
	if v := strings.TrimSpace(os.Getenv("PM_AUTH_ACCESS_TOKEN_FORMAT")); v != "" {
		cfg.AccessTokenFormat = strings.ToLower(v)
	}

	if v := os.Getenv("PM_AUTH_ACCESS_TOKEN_MINUTES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("PM_AUTH_REFRESH_TOKEN_DAYS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = time.Duration(n) * 24 * time.Hour
	}

	if v := os.Getenv("PM_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("PM_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if v := os.Getenv("PM_AUTH_EMAIL_CASE_INSENSITIVE"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.EmailCaseInsensitive = b
	}

	cfg.Secret = os.Getenv("PM_AUTH_SECRET")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
