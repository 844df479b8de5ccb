package session

import "time"

// AccessClaims is the identity envelope carried by an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// AccessTokenCodec issues and verifies short-lived access tokens.
// Verification is purely cryptographic plus claim checks; no store is consulted.
type AccessTokenCodec interface {
	Issue(userID, email string, now time.Time, ttl time.Duration) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

// NewAccessTokenCodec returns the codec selected by cfg.AccessTokenFormat.
func NewAccessTokenCodec(cfg Config) (AccessTokenCodec, error) {
	switch cfg.AccessTokenFormat {
	case FormatJWT, "":
		return NewJWTCodec(cfg)
	case FormatPaseto:
		return NewPasetoV4LocalCodec(cfg)
	default:
		return nil, ErrConfig
	}
}

// checkClaims enforces issuer, audience and the time window with skew.
// Codecs that cannot delegate these checks to their library share it.
func checkClaims(c AccessClaims, issuer, audience string, now time.Time, skew time.Duration) error {
	if c.UserID == "" {
		return ErrMalformedToken
	}
	if c.Issuer != issuer {
		return ErrWrongIssuer
	}
	if c.Audience != audience {
		return ErrWrongAudience
	}
	if c.ExpiresAt.IsZero() || !now.Before(c.ExpiresAt.Add(skew)) {
		return ErrTokenExpired
	}
	if !c.NotBefore.IsZero() && now.Add(skew).Before(c.NotBefore) {
		return ErrTokenExpired
	}
	return nil
}
