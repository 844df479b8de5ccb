package session

import (
	"context"
	"net"
	"time"

	"projectmanager/cmd/identity"
)

// DeviceContext describes the client that presented credentials.
type DeviceContext struct {
	IP     net.IP
	Device string // typically the User-Agent
}

// maxDeviceLen bounds stored device strings.
const maxDeviceLen = 128

// RefreshToken mirrors a refresh_tokens row. The raw token value is never stored.
type RefreshToken struct {
	ID                string
	UserID            string
	TokenHash         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	ReplacedByTokenID *string
	CreatedByIP       *string
	Device            *string
}

// Usable reports whether the token can be redeemed at now.
func (rt RefreshToken) Usable(now time.Time) bool {
	return rt.RevokedAt == nil && rt.ExpiresAt.After(now)
}

// Store is the persistence boundary for users and the refresh-token ledger.
//
// Lookups return identity.ErrNotFound (wrapped) when no row matches;
// duplicate emails surface as identity.ConflictError{Field: "email"}.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	GetUserByID(ctx context.Context, userID string) (identity.User, error)

	// CreateRefreshToken inserts a new ledger row outside any rotation.
	CreateRefreshToken(ctx context.Context, rt RefreshToken) error

	// RevokeByHash revokes the matching row if it is still live. Missing rows are not an error.
	RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error

	// RevokeAllForUser revokes every live row of userID and reports how many were revoked.
	RevokeAllForUser(ctx context.Context, now time.Time, userID string) (int64, error)

	// DeleteUser removes the user's refresh tokens and then the user, in one transaction.
	DeleteUser(ctx context.Context, userID string) error

	// InTx runs fn in a single transaction; fn returning an error rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
}

// Tx is the transactional view used by registration and rotation.
type Tx interface {
	CreateUser(ctx context.Context, u identity.User) error
	GetUserByID(ctx context.Context, userID string) (identity.User, error)

	// GetRefreshTokenForUpdate loads a row by hash and locks it until the transaction ends.
	GetRefreshTokenForUpdate(ctx context.Context, tokenHash string) (RefreshToken, error)

	InsertRefreshToken(ctx context.Context, rt RefreshToken) error

	// MarkRotated revokes a live row and links it to its successor.
	// It returns identity.ErrNotActive if the row was already revoked.
	MarkRotated(ctx context.Context, now time.Time, tokenID, replacedBy string) error

	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

func ipString(ip net.IP) *string {
	if ip == nil {
		return nil
	}
	s := ip.String()
	return &s
}

func deviceString(d string) *string {
	if d == "" {
		return nil
	}
	if r := []rune(d); len(r) > maxDeviceLen {
		d = string(r[:maxDeviceLen])
	}
	return &d
}
