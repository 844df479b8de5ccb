package session

import (
	"crypto/sha256"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

const pasetoV4LocalHeader = "v4.local."

type pasetoV4LocalCodec struct {
	issuer   string
	audience string
	skew     time.Duration
	key      paseto.V4SymmetricKey
}

// NewPasetoV4LocalCodec builds a PASETO v4.local codec.
// The 32-byte symmetric key is SHA-256(cfg.Secret).
func NewPasetoV4LocalCodec(cfg Config) (AccessTokenCodec, error) {
	if len(cfg.Secret) < MinSecretBytes || cfg.Issuer == "" || cfg.Audience == "" {
		return nil, ErrConfig
	}
	sum := sha256.Sum256([]byte(cfg.Secret))
	key, err := paseto.V4SymmetricKeyFromBytes(sum[:])
	if err != nil {
		return nil, ErrConfig
	}
	return &pasetoV4LocalCodec{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		skew:     cfg.ClockSkew,
		key:      key,
	}, nil
}

func (m *pasetoV4LocalCodec) Issue(userID, email string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)

	tok := paseto.NewToken()
	tok.SetSubject(userID)
	tok.SetIssuer(m.issuer)
	tok.SetAudience(m.audience)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetString("email", email)

	return tok.V4Encrypt(m.key, nil), exp, nil
}

func (m *pasetoV4LocalCodec) Verify(token string, now time.Time) (AccessClaims, error) {
	if !strings.HasPrefix(token, pasetoV4LocalHeader) {
		return AccessClaims{}, ErrMalformedToken
	}

	// Time and claim rules run in checkClaims so that failures map to typed errors.
	p := paseto.NewParserWithoutExpiryCheck()
	parsed, err := p.ParseV4Local(m.key, token, nil)
	if err != nil {
		return AccessClaims{}, ErrInvalidSignature
	}

	var c AccessClaims
	c.UserID, _ = parsed.GetSubject()
	c.Issuer, _ = parsed.GetIssuer()
	c.Audience, _ = parsed.GetAudience()
	c.Email, _ = parsed.GetString("email")
	c.IssuedAt, _ = parsed.GetIssuedAt()
	c.NotBefore, _ = parsed.GetNotBefore()
	c.ExpiresAt, _ = parsed.GetExpiration()

	if err := checkClaims(c, m.issuer, m.audience, now, m.skew); err != nil {
		return AccessClaims{}, err
	}
	return c, nil
}
