// Package migrations embeds the Postgres schema and applies it with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

func open(databaseURL string) (*goose.Provider, func() error, error) {
	db, err := goose.OpenDBWithDriver("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, FS)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, db.Close, nil
}

// Up applies all pending migrations and returns how many ran.
func Up(ctx context.Context, databaseURL string) (int, error) {
	p, closeDB, err := open(databaseURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeDB() }()

	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("migrate up: %w", err)
	}
	return len(res), nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, databaseURL string) error {
	p, closeDB, err := open(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = closeDB() }()

	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status reports each known migration version and whether it is applied.
func Status(ctx context.Context, databaseURL string) ([]Version, error) {
	p, closeDB, err := open(databaseURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeDB() }()

	st, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Version, 0, len(st))
	for _, s := range st {
		out = append(out, Version{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version describes one migration file.
type Version struct {
	Version int64
	Path    string
	Applied bool
}
