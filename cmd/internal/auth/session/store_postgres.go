package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"projectmanager/cmd/identity"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Schema/table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	users  string
	tokens string
}

// PostgresOption configures the store.
type PostgresOption func(*postgresOptions) error

type postgresOptions struct {
	schema string
}

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "pm").
func WithSchema(schema string) PostgresOption {
	return func(o *postgresOptions) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		o.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	o := postgresOptions{schema: "pm"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &PostgresStore{
		pool:   pool,
		users:  pgx.Identifier{o.schema, "users"}.Sanitize(),
		tokens: pgx.Identifier{o.schema, "refresh_tokens"}.Sanitize(),
	}, nil
}

// pgQuerier is satisfied by both the pool and a transaction.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return s.getUser(ctx, s.pool, "identity.GetUserByEmail", "email", email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (identity.User, error) {
	return s.getUser(ctx, s.pool, "identity.GetUserByID", "id", userID)
}

func (s *PostgresStore) getUser(ctx context.Context, q pgQuerier, op, col, val string) (identity.User, error) {
	var u identity.User
	err := q.QueryRow(ctx, `
		SELECT id, email, password_hash, password_salt, created_at
		FROM `+s.users+`
		WHERE `+col+` = $1
	`, val).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.PasswordSalt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, identity.NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return identity.User{}, err
	}
	return u, nil
}

func (s *PostgresStore) CreateRefreshToken(ctx context.Context, rt RefreshToken) error {
	return s.insertRefreshToken(ctx, s.pool, rt)
}

func (s *PostgresStore) insertRefreshToken(ctx context.Context, q pgQuerier, rt RefreshToken) error {
	_, err := q.Exec(ctx, `
		INSERT INTO `+s.tokens+` (
			id, user_id, token_hash, created_at, expires_at,
			revoked_at, replaced_by_token_id, created_by_ip, device
		) VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $7)
	`, rt.ID, rt.UserID, rt.TokenHash, rt.CreatedAt, rt.ExpiresAt, rt.CreatedByIP, rt.Device)
	if field, ok := pgClassifyUniqueViolation(err); ok {
		return identity.ConflictError{Op: "session.InsertRefreshToken", Field: field}
	}
	return err
}

// RevokeByHash revokes a live token (idempotent).
func (s *PostgresStore) RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.tokens+`
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1
	`, tokenHash, now)
	return err
}

// RevokeAllForUser revokes all live tokens for a user.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.tokens+`
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteUser deletes dependent tokens first, then the user row.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	return s.InTx(ctx, func(tx Tx) error {
		t := tx.(*pgStoreTx)
		if _, err := t.tx.Exec(ctx, `DELETE FROM `+s.tokens+` WHERE user_id = $1`, userID); err != nil {
			return err
		}
		tag, err := t.tx.Exec(ctx, `DELETE FROM `+s.users+` WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return identity.NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
		}
		return nil
	})
}

// InTx runs fn inside a READ COMMITTED transaction.
// Row locks taken by GetRefreshTokenForUpdate are held until commit.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgStoreTx{s: s, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgStoreTx struct {
	s  *PostgresStore
	tx pgx.Tx
}

func (t *pgStoreTx) CreateUser(ctx context.Context, u identity.User) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO `+t.s.users+` (id, email, password_hash, password_salt, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.PasswordHash, u.PasswordSalt, u.CreatedAt)
	if field, ok := pgClassifyUniqueViolation(err); ok {
		return identity.ConflictError{Op: "identity.CreateUser", Field: field}
	}
	return err
}

func (t *pgStoreTx) GetUserByID(ctx context.Context, userID string) (identity.User, error) {
	return t.s.getUser(ctx, t.tx, "identity.GetUserByID", "id", userID)
}

func (t *pgStoreTx) GetRefreshTokenForUpdate(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var rt RefreshToken
	err := t.tx.QueryRow(ctx, `
		SELECT
			id, user_id, token_hash, created_at, expires_at,
			revoked_at, replaced_by_token_id, created_by_ip, device
		FROM `+t.s.tokens+`
		WHERE token_hash = $1
		FOR UPDATE
	`, tokenHash).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.CreatedAt,
		&rt.ExpiresAt,
		&rt.RevokedAt,
		&rt.ReplacedByTokenID,
		&rt.CreatedByIP,
		&rt.Device,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, identity.NotFoundError{Op: "session.GetRefreshTokenForUpdate", Resource: "refresh_token"}
	}
	if err != nil {
		return RefreshToken{}, err
	}
	return rt, nil
}

func (t *pgStoreTx) InsertRefreshToken(ctx context.Context, rt RefreshToken) error {
	return t.s.insertRefreshToken(ctx, t.tx, rt)
}

func (t *pgStoreTx) MarkRotated(ctx context.Context, now time.Time, tokenID, replacedBy string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE `+t.s.tokens+`
		SET revoked_at = $2, replaced_by_token_id = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, tokenID, now, replacedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return identity.OpError{Op: "session.MarkRotated", Kind: identity.ErrNotActive}
	}
	return nil
}

func (t *pgStoreTx) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM `+t.s.tokens+` WHERE id = $1`, tokenID)
	return err
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(c, "email"):
		return "email", true
	case strings.Contains(c, "token_hash"):
		return "refresh_token", true
	default:
		return "unique", true
	}
}
