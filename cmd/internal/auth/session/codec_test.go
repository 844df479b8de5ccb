package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codecBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func codecConfig(format string) Config {
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.AccessTokenFormat = format
	return cfg
}

func mustCodec(t *testing.T, cfg Config) AccessTokenCodec {
	t.Helper()
	c, err := NewAccessTokenCodec(cfg)
	require.NoError(t, err)
	return c
}

func forEachFormat(t *testing.T, fn func(t *testing.T, format string)) {
	for _, f := range []string{FormatJWT, FormatPaseto} {
		t.Run(f, func(t *testing.T) { fn(t, f) })
	}
}

func TestCodec_IssueAndVerify(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		c := mustCodec(t, codecConfig(format))

		tok, exp, err := c.Issue("user-1", "a@x.com", codecBase, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, codecBase.Add(30*time.Minute), exp)

		claims, err := c.Verify(tok, codecBase.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.Equal(t, "projectmanager", claims.Issuer)
		assert.Equal(t, "projectmanager-web", claims.Audience)
		assert.True(t, claims.ExpiresAt.Equal(exp))
		assert.True(t, claims.NotBefore.Equal(codecBase))
		assert.True(t, claims.IssuedAt.Equal(codecBase))
	})
}

func TestCodec_ExpiryHonoursSkew(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		c := mustCodec(t, codecConfig(format))
		tok, _, err := c.Issue("user-1", "a@x.com", codecBase, time.Minute)
		require.NoError(t, err)

		_, err = c.Verify(tok, codecBase.Add(time.Minute+20*time.Second))
		assert.NoError(t, err, "inside the 30s leeway")

		_, err = c.Verify(tok, codecBase.Add(time.Minute+31*time.Second))
		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestCodec_ZeroLifetimeWithoutSkewIsExpired(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		cfg := codecConfig(format)
		cfg.ClockSkew = 0
		c := mustCodec(t, cfg)

		tok, _, err := c.Issue("user-1", "a@x.com", codecBase, 0)
		require.NoError(t, err)

		_, err = c.Verify(tok, codecBase)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestCodec_WrongSecret(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		issuer := mustCodec(t, codecConfig(format))
		other := codecConfig(format)
		other.Secret = strings.Repeat("o", MinSecretBytes)
		verifier := mustCodec(t, other)

		tok, _, err := issuer.Issue("user-1", "a@x.com", codecBase, time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(tok, codecBase)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestCodec_WrongAudienceAndIssuer(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		c := mustCodec(t, codecConfig(format))
		tok, _, err := c.Issue("user-1", "a@x.com", codecBase, time.Minute)
		require.NoError(t, err)

		aud := codecConfig(format)
		aud.Audience = "someone-else"
		_, err = mustCodec(t, aud).Verify(tok, codecBase)
		assert.ErrorIs(t, err, ErrWrongAudience)

		iss := codecConfig(format)
		iss.Issuer = "someone-else"
		_, err = mustCodec(t, iss).Verify(tok, codecBase)
		assert.ErrorIs(t, err, ErrWrongIssuer)
	})
}

func TestCodec_Malformed(t *testing.T) {
	forEachFormat(t, func(t *testing.T, format string) {
		c := mustCodec(t, codecConfig(format))
		_, err := c.Verify("garbage", codecBase)
		assert.ErrorIs(t, err, ErrMalformedToken)
		assert.True(t, errors.Is(err, ErrUnauthenticated))
	})
}

func TestJWT_TamperedPayload(t *testing.T) {
	c := mustCodec(t, codecConfig(FormatJWT))
	tok, _, err := c.Issue("user-1", "a@x.com", codecBase, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, _, err := c.Issue("user-2", "b@x.com", codecBase, time.Minute)
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = c.Verify(forged, codecBase)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestJWT_RejectsUnsignedAlgorithm(t *testing.T) {
	c := mustCodec(t, codecConfig(FormatJWT))
	// {"alg":"none","typ":"JWT"} . {"sub":"user-1"} . (empty)
	tok := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyLTEifQ."
	_, err := c.Verify(tok, codecBase)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestNewAccessTokenCodec_RejectsShortSecret(t *testing.T) {
	cfg := codecConfig(FormatJWT)
	cfg.Secret = "short"
	_, err := NewAccessTokenCodec(cfg)
	assert.ErrorIs(t, err, ErrConfig)

	cfg = codecConfig("saml")
	_, err = NewAccessTokenCodec(cfg)
	assert.ErrorIs(t, err, ErrConfig)
}
