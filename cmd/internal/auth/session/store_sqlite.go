package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"projectmanager/cmd/identity"
)

type userModel struct {
	ID           string    `gorm:"primaryKey;size:26"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:uq_users_email"`
	PasswordHash string    `gorm:"not null"`
	PasswordSalt string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type refreshTokenModel struct {
	ID                string     `gorm:"primaryKey;size:26"`
	UserID            string     `gorm:"size:26;not null;index:ix_refresh_tokens_user"`
	TokenHash         string     `gorm:"size:64;not null;uniqueIndex:uq_refresh_tokens_token_hash"`
	CreatedAt         time.Time  `gorm:"not null"`
	ExpiresAt         time.Time  `gorm:"not null"`
	RevokedAt         *time.Time
	ReplacedByTokenID *string    `gorm:"size:26"`
	CreatedByIP       *string    `gorm:"size:45"`
	Device            *string    `gorm:"size:128"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

// SQLiteStore implements Store with gorm over SQLite.
//
// SQLite serializes writers database-wide, so rotation safety comes from
// running on a single connection plus the conditional update in MarkRotated.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) a SQLite database at dsn.
// Use "file:<name>?mode=memory&cache=shared" for an in-memory database.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	st := &SQLiteStore{db: db}
	if err := st.AutoMigrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return st, nil
}

// AutoMigrate creates or updates the users and refresh_tokens tables.
func (s *SQLiteStore) AutoMigrate() error {
	return s.db.AutoMigrate(&userModel{}, &refreshTokenModel{})
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return gormGetUser(s.db.WithContext(ctx), "identity.GetUserByEmail", "email = ?", email)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, userID string) (identity.User, error) {
	return gormGetUser(s.db.WithContext(ctx), "identity.GetUserByID", "id = ?", userID)
}

func (s *SQLiteStore) CreateRefreshToken(ctx context.Context, rt RefreshToken) error {
	return gormInsertRefreshToken(s.db.WithContext(ctx), rt)
}

func (s *SQLiteStore) RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error {
	return s.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", now).Error
}

func (s *SQLiteStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now)
	return res.RowsAffected, res.Error
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&refreshTokenModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", userID).Delete(&userModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return identity.NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
		}
		return nil
	})
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t gormTx) CreateUser(ctx context.Context, u identity.User) error {
	err := t.db.WithContext(ctx).Create(&userModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		PasswordSalt: u.PasswordSalt,
		CreatedAt:    u.CreatedAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return identity.ConflictError{Op: "identity.CreateUser", Field: "email"}
	}
	return err
}

func (t gormTx) GetUserByID(ctx context.Context, userID string) (identity.User, error) {
	return gormGetUser(t.db.WithContext(ctx), "identity.GetUserByID", "id = ?", userID)
}

func (t gormTx) GetRefreshTokenForUpdate(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var m refreshTokenModel
	err := t.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RefreshToken{}, identity.NotFoundError{Op: "session.GetRefreshTokenForUpdate", Resource: "refresh_token"}
	}
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		ID:                m.ID,
		UserID:            m.UserID,
		TokenHash:         m.TokenHash,
		CreatedAt:         m.CreatedAt,
		ExpiresAt:         m.ExpiresAt,
		RevokedAt:         m.RevokedAt,
		ReplacedByTokenID: m.ReplacedByTokenID,
		CreatedByIP:       m.CreatedByIP,
		Device:            m.Device,
	}, nil
}

func (t gormTx) InsertRefreshToken(ctx context.Context, rt RefreshToken) error {
	return gormInsertRefreshToken(t.db.WithContext(ctx), rt)
}

func (t gormTx) MarkRotated(ctx context.Context, now time.Time, tokenID, replacedBy string) error {
	res := t.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Updates(map[string]any{"revoked_at": now, "replaced_by_token_id": replacedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return identity.OpError{Op: "session.MarkRotated", Kind: identity.ErrNotActive}
	}
	return nil
}

func (t gormTx) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return t.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&refreshTokenModel{}).Error
}

func gormGetUser(db *gorm.DB, op, where string, arg string) (identity.User, error) {
	var m userModel
	err := db.Where(where, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return identity.User{}, identity.NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return identity.User{}, err
	}
	return identity.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		PasswordSalt: m.PasswordSalt,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func gormInsertRefreshToken(db *gorm.DB, rt RefreshToken) error {
	err := db.Create(&refreshTokenModel{
		ID:          rt.ID,
		UserID:      rt.UserID,
		TokenHash:   rt.TokenHash,
		CreatedAt:   rt.CreatedAt,
		ExpiresAt:   rt.ExpiresAt,
		CreatedByIP: rt.CreatedByIP,
		Device:      rt.Device,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return identity.ConflictError{Op: "session.InsertRefreshToken", Field: "refresh_token"}
	}
	return err
}
