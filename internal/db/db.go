// Package db is tally's storage engine: schema management, transaction
// scopes and the SQL behind tasks, events, users, installations,
// subscriptions and metadata.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/db/driver"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// MemoryDSN is the DSN of a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// DB wraps a database connection with driver abstraction.
type DB struct {
	driver driver.Driver
	path   string
	cfg    *config.Configuration
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithConfiguration sets the configuration the storage engine reads the
// current user and installation from. Without it a default configuration
// is used.
func WithConfiguration(cfg *config.Configuration) Option {
	return func(d *DB) {
		if cfg != nil {
			d.cfg = cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.logger = l
		}
	}
}

// Open opens a SQLite database at the given path.
// Creates the parent directory if it doesn't exist.
func Open(path string, opts ...Option) (*DB, error) {
	return OpenWithDialect(path, driver.DialectSQLite, opts...)
}

// OpenInMemory opens an in-memory SQLite database.
// Each call creates a new isolated database.
func OpenInMemory(opts ...Option) (*DB, error) {
	return OpenWithDialect(MemoryDSN, driver.DialectSQLite, opts...)
}

// OpenWithDialect opens a database with a specific dialect.
func OpenWithDialect(dsn string, dialect driver.Dialect, opts ...Option) (*DB, error) {
	if dialect == driver.DialectSQLite && dsn != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	return OpenWithDriver(drv, dsn, opts...)
}

// OpenWithDriver opens dsn through an already constructed driver.
func OpenWithDriver(drv driver.Driver, dsn string, opts ...Option) (*DB, error) {
	if err := drv.Open(dsn); err != nil {
		return nil, err
	}

	d := &DB{
		driver: drv,
		path:   dsn,
		cfg:    config.DefaultConfiguration(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.driver.Close()
}

// Path returns the database DSN/path.
func (d *DB) Path() string {
	return d.path
}

// Driver returns the underlying driver for dialect-specific operations.
func (d *DB) Driver() driver.Driver {
	return d.driver
}

// Dialect returns the database dialect.
func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// Configuration returns the configuration shared with the controller.
func (d *DB) Configuration() *config.Configuration {
	return d.cfg
}

// ExecContext executes a query without returning rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.driver.Exec(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.driver.Query(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.driver.QueryRow(ctx, query, args...)
}

// Queryer is the statement surface shared by a plain connection and a
// transaction Scope. Helpers that must work in both take a Queryer.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// conn binds a context to the DB so it satisfies Queryer.
type conn struct {
	d   *DB
	ctx context.Context
}

func (d *DB) with(ctx context.Context) Queryer {
	return conn{d: d, ctx: ctx}
}

func (c conn) Exec(query string, args ...any) (sql.Result, error) {
	return c.d.driver.Exec(c.ctx, query, args...)
}

func (c conn) Query(query string, args ...any) (*sql.Rows, error) {
	return c.d.driver.Query(c.ctx, query, args...)
}

func (c conn) QueryRow(query string, args ...any) *sql.Row {
	return c.d.driver.QueryRow(c.ctx, query, args...)
}
