package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// The sessions table is owned by the scs store adapters, and each adapter
// expects its own column types, so the DDL is chosen per dialect here instead
// of in a .sql file.

func init() {
	goose.AddMigrationContext(upCreateSessions, downCreateSessions)
}

var sessionsDDL = map[string]string{
	"postgres": `CREATE TABLE IF NOT EXISTS sessions (
    token  TEXT PRIMARY KEY,
    data   BYTEA NOT NULL,
    expiry TIMESTAMPTZ NOT NULL
)`,
	"mysql": `CREATE TABLE IF NOT EXISTS sessions (
    token  CHAR(43) PRIMARY KEY,
    data   BLOB NOT NULL,
    expiry TIMESTAMP(6) NOT NULL
)`,
	"sqlite3": `CREATE TABLE IF NOT EXISTS sessions (
    token  TEXT PRIMARY KEY,
    data   BLOB NOT NULL,
    expiry REAL NOT NULL
)`,
}

func upCreateSessions(ctx context.Context, tx *sql.Tx) error {
	ddl, ok := sessionsDDL[dialect]
	if !ok {
		ddl = sessionsDDL["sqlite3"]
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	idx := `CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry)`
	if dialect == "mysql" {
		// MySQL has no CREATE INDEX IF NOT EXISTS.
		idx = `CREATE INDEX sessions_expiry_idx ON sessions (expiry)`
	}
	if _, err := tx.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create sessions expiry index: %w", err)
	}
	return nil
}

func downCreateSessions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS sessions`)
	return err
}
