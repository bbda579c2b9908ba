// Package database provides database setup, models, and the data access layer (Store)
// for users, conversations and messages.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/chatdesk/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// busyTimeoutPragma makes concurrent writers wait instead of failing with SQLITE_BUSY.
const busyTimeoutPragma = "_pragma=busy_timeout(5000)"

// NewDB initializes, applies migrations, and returns a new database connection pool.
// dbPath should be a path to the SQLite database file; its parent directory is created if missing.
func NewDB(dbPath string) (*sqlx.DB, error) {
	fileName := ExtractDBNameFromPath(dbPath)
	if fileName == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(fileName); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect("sqlite", withPragma(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support concurrent writes, so max open conns = 1
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ApplyMigrations(db.DB, fileName); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully", "path", fileName)
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// ApplyMigrations runs the embedded versioned migrations against db.
// Every migration is written with IF NOT EXISTS so a database created by an
// earlier desktop build is adopted in place; columns those builds lacked are
// added first by upgradeLegacyColumns.
func ApplyMigrations(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}
	if dbName == "" {
		return errors.New("database name/path for migration driver is empty")
	}

	if err := upgradeLegacyColumns(db, time.Now()); err != nil {
		return fmt.Errorf("failed to upgrade legacy schema: %w", err)
	}

	slog.Info("Applying database migrations...", "database_name", dbName)

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite3 database driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		slog.Warn("Could not read schema version after migrating", "error", err)
		return nil
	}
	slog.Info("Database migrations applied successfully.", "version", version, "dirty", dirty)
	return nil
}

// ExtractDBNameFromPath extracts the database file path from a possibly URL-formatted path.
// This handles both simple file paths and paths with URL-style encoding.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}

// legacyColumn is a column added after the first desktop release. backfill,
// when set, runs once right after the column is added.
type legacyColumn struct {
	table    string
	column   string
	ddl      string
	backfill string
}

var legacyColumns = []legacyColumn{
	{
		table:    "conversations",
		column:   "last_timestamp",
		ddl:      "ALTER TABLE conversations ADD COLUMN last_timestamp INTEGER DEFAULT 0",
		backfill: "UPDATE conversations SET last_timestamp = ?",
	},
	{
		table:  "conversations",
		column: "muted",
		ddl:    "ALTER TABLE conversations ADD COLUMN muted INTEGER DEFAULT 0",
	},
	{
		table:  "messages",
		column: "format",
		ddl:    "ALTER TABLE messages ADD COLUMN format TEXT DEFAULT 'text'",
	},
}

// upgradeLegacyColumns adds the columns in legacyColumns to tables that exist
// without them. Tables that do not exist yet are left to the migrations.
// SQLite has no ADD COLUMN IF NOT EXISTS, so this runs as a Go step.
func upgradeLegacyColumns(db *sql.DB, now time.Time) error {
	x := sqlx.NewDb(db, "sqlite")
	columns := map[string]map[string]bool{}

	for _, lc := range legacyColumns {
		existing, ok := columns[lc.table]
		if !ok {
			var names []string
			if err := x.Select(&names, "SELECT name FROM pragma_table_info(?);", lc.table); err != nil {
				return fmt.Errorf("read columns of %s: %w", lc.table, err)
			}
			existing = make(map[string]bool, len(names))
			for _, name := range names {
				existing[name] = true
			}
			columns[lc.table] = existing
		}
		// No columns means the table itself is missing.
		if len(existing) == 0 || existing[lc.column] {
			continue
		}

		if _, err := x.Exec(lc.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", lc.table, lc.column, err)
		}
		if lc.backfill != "" {
			if _, err := x.Exec(lc.backfill, now.UnixMilli()); err != nil {
				return fmt.Errorf("backfill %s.%s: %w", lc.table, lc.column, err)
			}
		}
		existing[lc.column] = true
		slog.Info("Added missing column to legacy database", "table", lc.table, "column", lc.column)
	}
	return nil
}

func withPragma(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + busyTimeoutPragma
	}
	return dsn + "?" + busyTimeoutPragma
}
