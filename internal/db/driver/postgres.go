package driver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
)

// PostgresDriver implements the Driver interface for PostgreSQL.
type PostgresDriver struct {
	conn
}

// NewPostgres creates a new PostgreSQL driver.
func NewPostgres() *PostgresDriver {
	return &PostgresDriver{conn: conn{dialect: DialectPostgres}}
}

// Open connects to dsn and pings the server so a bad connection string
// fails here rather than on the first statement.
func (d *PostgresDriver) Open(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	d.db = db
	return nil
}

// TableExists reports whether table exists in the current schema.
func (d *PostgresDriver) TableExists(ctx context.Context, table string) (bool, error) {
	return d.tableExists(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ?`, table)
}
