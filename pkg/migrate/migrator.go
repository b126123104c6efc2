// Package migrate owns the Postgres schema: goose SQL files embedded in the
// binary, plus the model list used to build SQLite schemas in dev and tests.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the SQL files live relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator applies goose migrations from fsys to a Postgres database.
type Migrator struct {
	provider *goose.Provider
}

// NewMigrator builds a goose provider over fsys.
func NewMigrator(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Applied is one migration that ran.
type Applied struct {
	Version   int64
	Path      string
	Direction string
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]Applied, error) {
	results, err := m.provider.Up(ctx)
	return collect(results), wrap("up", err)
}

// Down rolls back the latest migration.
func (m *Migrator) Down(ctx context.Context) ([]Applied, error) {
	result, err := m.provider.Down(ctx)
	if result == nil {
		return nil, wrap("down", err)
	}
	return collect([]*goose.MigrationResult{result}), wrap("down", err)
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	return statuses, wrap("status", err)
}

// Version reports the highest applied version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	return version, wrap("version", err)
}

// MigrateTo moves the schema up or down until target is the latest applied
// version. target is a YYYYMMDDHHMMSS file prefix.
func (m *Migrator) MigrateTo(ctx context.Context, target string) ([]Applied, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("migrate: invalid target version %q", target)
	}
	current, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	var results []*goose.MigrationResult
	switch {
	case version > current:
		results, err = m.provider.UpTo(ctx, version)
	case version < current:
		results, err = m.provider.DownTo(ctx, version)
	}
	return collect(results), wrap(fmt.Sprintf("to %d", version), err)
}

func collect(results []*goose.MigrationResult) []Applied {
	applied := make([]Applied, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		applied = append(applied, Applied{Version: r.Source.Version, Path: r.Source.Path, Direction: r.Direction})
	}
	return applied
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("migrate %s: %w", op, err)
}
