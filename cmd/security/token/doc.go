// Package token generates opaque refresh tokens and derives their storage hashes.
//
// A refresh token is 64 bytes from crypto/rand, encoded as unpadded base64url.
// Only the hash ever reaches the database; the raw value goes to the client once.
//
// Hashing modes:
// - Default: SHA-256(token), base64url without padding.
// - Keyed: HMAC-SHA256(token, key) when PM_TOKEN_HMAC_KEY is configured.
//
// Both modes are deterministic so the hash doubles as the lookup key.
package token
