// Package db embeds the SQL schema migrations and applies them with goose.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var Migrations embed.FS

const migrationTable = "schema_migrations"

// Dialect names a migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

func (d Dialect) dir() string {
	if d == SQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

func setup(dialect Dialect) error {
	goose.SetBaseFS(Migrations)
	goose.SetTableName(migrationTable)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, conn *sql.DB, dialect Dialect) error {
	if err := setup(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, conn, dialect.dir()); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, conn *sql.DB, dialect Dialect) error {
	if err := setup(dialect); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, conn, dialect.dir()); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func Version(ctx context.Context, conn *sql.DB, dialect Dialect) (int64, error) {
	if err := setup(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, conn)
}
