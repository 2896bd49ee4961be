package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteDriver implements the Driver interface for SQLite.
type SQLiteDriver struct {
	conn
}

// NewSQLite creates a new SQLite driver.
func NewSQLite() *SQLiteDriver {
	return &SQLiteDriver{conn: conn{dialect: DialectSQLite}}
}

// Open opens a SQLite database at the given path (":memory:" for a private
// in-memory database).
func (d *SQLiteDriver) Open(dsn string) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes
	// writers; tally has exactly one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set pragmas: %w", err)
	}

	d.db = db
	return nil
}

// TableExists reports whether a table named table exists.
func (d *SQLiteDriver) TableExists(ctx context.Context, table string) (bool, error) {
	return d.tableExists(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
}

// Checkpoint flushes the write-ahead log into the main database file so
// the file can be copied on its own.
func (d *SQLiteDriver) Checkpoint(ctx context.Context) error {
	if _, err := d.Exec(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}
