package storage

import (
	"log/slog"

	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/db"
	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
)

// Options configures a backend created by NewBackend.
type Options struct {
	// DSN is the file path (sqlite) or connection string (postgres).
	// Ignored for memory.
	DSN string
	// Configuration is shared with the controller; the backend reads the
	// current user and installation from it.
	Configuration *config.Configuration
	Logger        *slog.Logger
}

// Factory creates a backend by name.
type Factory func(name string, opts Options) (Backend, error)

// NewBackend creates an unconnected storage backend by name.
func NewBackend(name string, opts Options) (Backend, error) {
	if opts.Configuration == nil {
		opts.Configuration = config.DefaultConfiguration()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch name {
	case config.BackendSQLite, "":
		if opts.DSN == "" {
			return nil, tallyerrors.ErrConfigInvalid("database.dsn", "sqlite needs a database file path")
		}
		return newDatabaseBackend(config.BackendSQLite, driver.DialectSQLite, opts.DSN, opts), nil
	case config.BackendMemory:
		return newDatabaseBackend(config.BackendMemory, driver.DialectSQLite, db.MemoryDSN, opts), nil
	case config.BackendPostgres:
		if opts.DSN == "" {
			return nil, tallyerrors.ErrConfigInvalid("database.dsn", "postgres needs a connection string")
		}
		return newDatabaseBackend(config.BackendPostgres, driver.DialectPostgres, opts.DSN, opts), nil
	default:
		return nil, tallyerrors.ErrUnknownBackend(name)
	}
}
