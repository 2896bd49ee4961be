// Package driver provides database driver abstraction for SQLite and PostgreSQL.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect represents the database dialect.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Driver abstracts database operations for SQLite and PostgreSQL.
//
// Queries are written with "?" placeholders; Exec, Query and QueryRow
// rebind them to the dialect before execution.
type Driver interface {
	// Connection
	Open(dsn string) error
	Close() error

	// Queries
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// Transactions
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Transactional() bool

	// Schema inspection
	TableExists(ctx context.Context, table string) (bool, error)

	// Dialect-specific
	Dialect() Dialect
	Rebind(query string) string

	// Raw access (for advanced operations)
	DB() *sql.DB
}

// Tx wraps database transactions. Like Driver, it rebinds "?" placeholders.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Commit() error
	Rollback() error
}

// New creates a driver based on configuration.
func New(dialect Dialect) (Driver, error) {
	switch dialect {
	case DialectSQLite:
		return NewSQLite(), nil
	case DialectPostgres:
		return NewPostgres(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// Rebind rewrites "?" placeholders into the numbered form used by dialect.
// Question marks inside single-quoted literals or double-quoted identifiers
// are left alone.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// conn is the database/sql plumbing shared by both dialects. Every query
// passes through Rebind before it reaches the pool.
type conn struct {
	db      *sql.DB
	dialect Dialect
}

// Close closes the pool. Closing a driver that was never opened is a no-op.
func (c *conn) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, Rebind(c.dialect, query), args...)
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, Rebind(c.dialect, query), args...)
}

func (c *conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, Rebind(c.dialect, query), args...)
}

// BeginTx starts a transaction whose statements are rebound like the pool's.
func (c *conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", c.dialect, err)
	}
	return &sqlTx{tx: tx, dialect: c.dialect}, nil
}

// Transactional is true for every database/sql backed dialect.
func (c *conn) Transactional() bool { return true }

func (c *conn) Dialect() Dialect { return c.dialect }

func (c *conn) Rebind(query string) string { return Rebind(c.dialect, query) }

func (c *conn) DB() *sql.DB { return c.db }

// tableExists runs a COUNT(*) query against the dialect's catalog.
func (c *conn) tableExists(ctx context.Context, query, table string) (bool, error) {
	var n int
	if err := c.QueryRow(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// sqlTx wraps a sql.Tx to implement the Tx interface.
type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, Rebind(t.dialect, query), args...)
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, Rebind(t.dialect, query), args...)
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rebind(t.dialect, query), args...)
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
