package db

import (
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	_ "modernc.org/sqlite"
)

// sqlDriverNames maps configured driver names onto registered database/sql
// drivers. modernc/sqlite registers itself as "sqlite" (CGO-free).
var sqlDriverNames = map[string]string{
	"sqlite3":  "sqlite",
	"mysql":    "mysql",
	"postgres": "postgres",
}

var dbSystems = map[string]attribute.KeyValue{
	"sqlite3":  semconv.DBSystemSqlite,
	"mysql":    semconv.DBSystemMySQL,
	"postgres": semconv.DBSystemPostgreSQL,
}

// New opens a database connection for the given driver and DSN.
// Supported drivers: sqlite3, mysql, postgres. Queries are traced through
// otelsql; spans are dropped unless a tracer provider is installed.
func New(driver, dsn string) (*sqlx.DB, error) {
	name, ok := sqlDriverNames[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported DB driver %q: must be sqlite3, mysql, or postgres", driver)
	}

	sqlDB, err := otelsql.Open(name, dsn,
		otelsql.WithAttributes(dbSystems[driver]),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// sqlx picks placeholder style from the driver name, so keep the real one.
	db := sqlx.NewDb(sqlDB, name)

	switch driver {
	case "sqlite3":
		// Writers serialize on the file lock; WAL lets readers proceed.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}
