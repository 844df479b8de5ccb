package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"projectmanager/cmd/internal/auth/session"
	"projectmanager/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// It does not run migrations; see openStore and cmd/pmmigrate.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

const memoryDSN = "file:projectmanager?mode=memory&cache=shared"

// storeKind reports which backend a database URL selects.
func storeKind(databaseURL string) (kind, dsn string, err error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return "memory", memoryDSN, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "postgres", u, nil
	case strings.HasPrefix(u, "sqlite:"):
		dsn := strings.TrimPrefix(u, "sqlite:")
		if dsn == "" {
			return "", "", fmt.Errorf("PM_DATABASE_URL: empty sqlite path")
		}
		return "sqlite", dsn, nil
	default:
		return "", "", fmt.Errorf("PM_DATABASE_URL: unsupported scheme")
	}
}

// openStore opens the session store selected by cfg.DatabaseURL.
// The returned close func releases the pool or SQLite handle.
func openStore(ctx context.Context, cfg Config, log Logger) (session.Store, func(), error) {
	kind, dsn, err := storeKind(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case "postgres":
		if cfg.DBAutoMigrate {
			n, err := migrations.Up(ctx, dsn)
			if err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("db.migrate.ok", "applied", n)
		}
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		st, err := session.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("db.enabled.postgres_store")
		return st, pool.Close, nil

	default:
		st, err := session.OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("db.enabled.sqlite_store", "mode", kind)
		return st, func() { _ = st.Close() }, nil
	}
}
