package session

import (
	"time"

	"projectmanager/cmd/identity"
	"projectmanager/cmd/security/token"
)

// maxPresentedTokenLen bounds refresh tokens accepted from clients.
const maxPresentedTokenLen = 4096

// newRefreshToken builds a ledger row for userID and returns it with the raw value.
func (s *Service) newRefreshToken(now time.Time, userID string, dev DeviceContext) (RefreshToken, string, error) {
	plain, err := token.NewOpaqueN(s.cfg.RefreshTokenBytes)
	if err != nil {
		return RefreshToken{}, "", err
	}
	id, err := identity.NewULID(now)
	if err != nil {
		return RefreshToken{}, "", err
	}
	return RefreshToken{
		ID:          id,
		UserID:      userID,
		TokenHash:   s.hasher.Hash(plain),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
		CreatedByIP: ipString(dev.IP),
		Device:      deviceString(dev.Device),
	}, plain, nil
}
