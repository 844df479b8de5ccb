package app

import (
	"errors"

	"projectmanager/cmd/security/token"
)

const minHMACKeyBytes = 32

// SecurityHasher builds the refresh-token hasher and enforces the HMAC policy at startup.
// Under PM_REQUIRE_TOKEN_HMAC=true a missing or short key is fatal rather than a silent SHA-256 fallback.
func SecurityHasher(cfg Config) (token.Hasher, error) {
	h, err := token.HasherFromEnv(cfg.RequireTokenHMAC, minHMACKeyBytes)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return token.Hasher{}, errors.New("security policy: PM_REQUIRE_TOKEN_HMAC=true but PM_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return token.Hasher{}, errors.New("security policy: PM_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return token.Hasher{}, err
		}
	}
	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: PM_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
