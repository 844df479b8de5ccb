package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "PM_TOKEN_HMAC_KEY"

	// DefaultBytes is the entropy of a refresh token.
	DefaultBytes = 64

	// MinBytes and MaxBytes bound configurable token sizes.
	MinBytes = 64
	MaxBytes = 128
)

var enc = base64.RawURLEncoding

// NewOpaque returns a fresh URL-safe token carrying DefaultBytes of entropy.
func NewOpaque() (string, error) {
	return NewOpaqueN(DefaultBytes)
}

// NewOpaqueN returns a URL-safe token carrying n random bytes.
func NewOpaqueN(n int) (string, error) {
	if n < MinBytes || n > MaxBytes {
		return "", ErrTokenSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token rand: %w", err)
	}
	return enc.EncodeToString(b), nil
}

// HashSHA256 returns SHA-256(s) as unpadded base64url.
func HashSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return enc.EncodeToString(sum[:])
}

// HashHMACSHA256 returns HMAC-SHA256(s, key) as unpadded base64url.
func HashHMACSHA256(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return enc.EncodeToString(m.Sum(nil))
}

// Hasher derives storage hashes for opaque tokens.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. An empty key selects plain SHA-256.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Hasher{key: k}
}

// Keyed reports whether the hasher uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the storage hash for token.
func (h Hasher) Hash(token string) string {
	if len(h.key) == 0 {
		return HashSHA256(token)
	}
	return HashHMACSHA256(token, h.key)
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// HasherFromEnv builds a Hasher from PM_TOKEN_HMAC_KEY.
// With require=true a missing or short key is an error; otherwise a missing
// key falls back to plain SHA-256.
func HasherFromEnv(require bool, minBytes int) (Hasher, error) {
	key, err := HMACKeyFromEnv(minBytes)
	switch {
	case err == nil:
		return NewHasher(key), nil
	case err == ErrHMACKeyMissing && !require:
		return Hasher{}, nil
	default:
		return Hasher{}, err
	}
}
