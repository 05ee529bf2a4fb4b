package db

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/joestump/storybooks/internal/db/migrations"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate runs all pending goose migrations: the embedded SQL files plus the
// dialect-aware Go migrations registered by the migrations package.
// It must be called before the HTTP server starts accepting requests.
func Migrate(db *sqlx.DB, driver string) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	return Up(db, dialect)
}

// Up applies migrations using an explicit goose dialect name. Tests call it
// directly against in-memory SQLite.
func Up(db *sqlx.DB, dialect string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	migrations.SetDialect(dialect)

	sub, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub migrations fs: %w", err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	if err := goose.Up(db.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "sqlite3", "mysql", "postgres":
		return driver, nil
	default:
		return "", fmt.Errorf("unknown driver for goose dialect: %q", driver)
	}
}
