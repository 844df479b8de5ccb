// Package session implements registration, login and the refresh-token ledger.
//
// Access tokens are short-lived, stateless and signed (JWT HS256 by default,
// PASETO v4.local as an alternative). Refresh tokens are opaque random strings,
// stored only as hashes, and rotated on every use: redeeming one revokes it,
// links it to its successor and inserts the successor in one transaction.
//
// Transport (HTTP cookies, JSON bodies) is out of scope here; see auth/api.
package session
