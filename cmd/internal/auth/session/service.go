package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"projectmanager/cmd/identity"
	"projectmanager/cmd/security/password"
	"projectmanager/cmd/security/token"
)

// Service implements register, login, refresh rotation and revocation.
type Service struct {
	cfg       Config
	store     Store
	codec     AccessTokenCodec
	passwords password.Config
	hasher    token.Hasher
	emails    identity.EmailPolicy
	log       *slog.Logger

	// Verified against when the email is unknown so both login failures cost the same.
	dummySalt   string
	dummyDigest string
}

// Issued is the result of register, login and refresh.
// RefreshToken is the raw value; it is returned here once and never again.
type Issued struct {
	UserID       string
	Email        string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPasswordConfig overrides the credential hasher settings.
func WithPasswordConfig(c password.Config) Option { return func(s *Service) { s.passwords = c } }

// WithTokenHasher sets how refresh tokens are hashed for storage.
func WithTokenHasher(h token.Hasher) Option { return func(s *Service) { s.hasher = h } }

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs a Service.
func NewService(cfg Config, store Store, codec AccessTokenCodec, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || codec == nil {
		return nil, ErrConfig
	}

	s := &Service{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		passwords: password.DefaultConfig(),
		emails:    identity.EmailPolicy{CaseInsensitive: cfg.EmailCaseInsensitive},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	salt, err := s.passwords.NewSalt()
	if err != nil {
		return nil, err
	}
	digest, err := s.passwords.Hash("not-a-real-password", salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	s.dummySalt, s.dummyDigest = salt, digest

	return s, nil
}

// Register creates a user and opens its first session.
func (s *Service) Register(ctx context.Context, now time.Time, email, pw string, dev DeviceContext) (Issued, error) {
	email = s.emails.Normalize(email)
	if err := identity.ValidateEmail(email); identity.IsInvalidInput(err) {
		return Issued{}, ValidationError{Field: "email", Err: err}
	} else if err != nil {
		return Issued{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return Issued{}, ErrEmailAlreadyRegistered
	} else if !identity.IsNotFound(err) {
		return Issued{}, err
	}

	salt, digest, err := s.passwords.New(pw)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrWeakPassword) {
			return Issued{}, ValidationError{Field: "password", Err: err}
		}
		return Issued{}, err
	}

	userID, err := identity.NewULID(now)
	if err != nil {
		return Issued{}, err
	}
	user := identity.User{ID: userID, Email: email, PasswordHash: digest, PasswordSalt: salt, CreatedAt: now}

	out, row, err := s.prepare(now, user, dev)
	if err != nil {
		return Issued{}, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.InsertRefreshToken(ctx, row)
	})
	if identity.IsConflict(err, "email") {
		return Issued{}, ErrEmailAlreadyRegistered
	}
	if err != nil {
		return Issued{}, err
	}

	s.log.Info("auth.register.ok", "user_id", user.ID)
	return out, nil
}

// Login verifies credentials and opens a new session.
// Unknown email and wrong password fail identically with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, now time.Time, email, pw string, dev DeviceContext) (Issued, error) {
	email = s.emails.Normalize(email)

	user, err := s.store.GetUserByEmail(ctx, email)
	if identity.IsNotFound(err) {
		_, _ = s.passwords.Verify(pw, s.dummySalt, s.dummyDigest)
		return Issued{}, ErrInvalidCredentials
	}
	if err != nil {
		return Issued{}, err
	}

	ok, err := s.passwords.Verify(pw, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		s.log.Error("auth.login.stored_hash_invalid", "user_id", user.ID, "err", err)
		return Issued{}, ErrInvalidCredentials
	}
	if !ok {
		return Issued{}, ErrInvalidCredentials
	}

	out, row, err := s.prepare(now, user, dev)
	if err != nil {
		return Issued{}, err
	}
	if err := s.store.CreateRefreshToken(ctx, row); err != nil {
		return Issued{}, err
	}
	return out, nil
}

// Refresh redeems a refresh token for a new access/refresh pair.
//
// Unknown, revoked and expired tokens all fail with ErrInvalidOrExpiredToken.
// An expired token is deleted before failing. Otherwise the presented row is
// revoked and linked to a freshly inserted successor in one transaction; the
// row lock serializes concurrent redemptions so at most one succeeds.
func (s *Service) Refresh(ctx context.Context, now time.Time, presented string, dev DeviceContext) (Issued, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > maxPresentedTokenLen {
		return Issued{}, ErrInvalidOrExpiredToken
	}
	hash := s.hasher.Hash(presented)

	var (
		out    Issued
		purged bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		old, err := tx.GetRefreshTokenForUpdate(ctx, hash)
		if identity.IsNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}

		if old.RevokedAt != nil {
			if old.ReplacedByTokenID != nil {
				refreshReuse.Inc()
				attrs := []any{"user_id", old.UserID, "token_id", old.ID}
				if issuedAt, err := identity.ULIDTime(old.ID); err == nil {
					attrs = append(attrs, "token_age", now.Sub(issuedAt).String())
				}
				s.log.Warn("auth.refresh.reuse", attrs...)
			}
			return ErrInvalidOrExpiredToken
		}

		if !old.ExpiresAt.After(now) {
			if err := tx.DeleteRefreshToken(ctx, old.ID); err != nil {
				return err
			}
			purged = true
			return nil
		}

		user, err := tx.GetUserByID(ctx, old.UserID)
		if identity.IsNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}

		issued, next, err := s.prepare(now, user, dev)
		if err != nil {
			return err
		}
		if err := tx.InsertRefreshToken(ctx, next); err != nil {
			return err
		}
		if err := tx.MarkRotated(ctx, now, old.ID, next.ID); err != nil {
			if identity.IsNotActive(err) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}
		out = issued
		return nil
	})
	switch {
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return Issued{}, ErrInvalidOrExpiredToken
	case err != nil:
		return Issued{}, fmt.Errorf("session: refresh: %w", err)
	case purged:
		refreshPurged.Inc()
		return Issued{}, ErrInvalidOrExpiredToken
	}

	refreshRotations.Inc()
	return out, nil
}

// Logout revokes the presented refresh token if it is live.
// Unknown or already revoked tokens are a silent no-op.
func (s *Service) Logout(ctx context.Context, now time.Time, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > maxPresentedTokenLen {
		return nil
	}
	return s.store.RevokeByHash(ctx, now, s.hasher.Hash(presented))
}

// LogoutAll revokes every live refresh token of userID.
func (s *Service) LogoutAll(ctx context.Context, now time.Time, userID string) error {
	n, err := s.store.RevokeAllForUser(ctx, now, userID)
	if err != nil {
		return err
	}
	s.log.Info("auth.logout_all.ok", "user_id", userID, "revoked", n)
	return nil
}

// ValidateAccessToken verifies an access token without touching the store.
func (s *Service) ValidateAccessToken(accessToken string, now time.Time) (AccessClaims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return AccessClaims{}, ErrUnauthenticated
	}
	return s.codec.Verify(accessToken, now)
}

// DeleteUser removes a user and every refresh token it owns.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.store.DeleteUser(ctx, userID)
}

// prepare issues the access token and builds the refresh row for user.
// Nothing is persisted; callers write the row in their own unit of work.
func (s *Service) prepare(now time.Time, user identity.User, dev DeviceContext) (Issued, RefreshToken, error) {
	access, accessExp, err := s.codec.Issue(user.ID, user.Email, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return Issued{}, RefreshToken{}, err
	}
	row, plain, err := s.newRefreshToken(now, user.ID, dev)
	if err != nil {
		return Issued{}, RefreshToken{}, err
	}
	return Issued{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: plain,
		RefreshExp:   row.ExpiresAt,
	}, row, nil
}
