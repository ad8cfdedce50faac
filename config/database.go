package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style and DDL for the plan store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDatabaseURL maps DATABASE_URL to a driver dialect and DSN.
// postgres:// and postgresql:// use lib/pq; sqlite://path, file: URLs and
// :memory: use modernc sqlite.
func ParseDatabaseURL(dbURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return DialectPostgres, dbURL, nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL %q has no path", dbURL)
		}
		return DialectSQLite, path, nil
	case strings.HasPrefix(dbURL, "file:"), dbURL == ":memory:":
		return DialectSQLite, dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", dbURL)
	}
}

// InitDB opens and pings the plan database.
func InitDB(dbURL string) (*sql.DB, Dialect, error) {
	dialect, dsn, err := ParseDatabaseURL(dbURL)
	if err != nil {
		return nil, "", err
	}

	if dialect == DialectSQLite {
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
				return nil, "", fmt.Errorf("failed to create database dir: %w", err)
			}
			dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
		}
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	} else {
		// one writer; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
	}

	return db, dialect, nil
}

// RunMigrations creates the plan table and its indexes. Timestamps are unix
// seconds so expiry comparisons behave the same on both dialects.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trip_plans (
			id VARCHAR(36) PRIMARY KEY,
			cache_key VARCHAR(64) NOT NULL,
			request TEXT NOT NULL,
			research TEXT NOT NULL,
			itinerary TEXT NOT NULL,
			images TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trip_plans_cache_key ON trip_plans(cache_key)`,
		`CREATE INDEX IF NOT EXISTS idx_trip_plans_expires_at ON trip_plans(expires_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
