package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
)

// SchemaVersion is the schema version this build reads and writes.
const SchemaVersion = 2

// SchemaVersionKey is the reserved metadata key holding the schema version.
const SchemaVersionKey = "schema_version"

// Status is the outcome of VerifyDatabase.
type Status int

const (
	// StatusNeedsCreation means the database has no tables yet.
	StatusNeedsCreation Status = iota
	// StatusCurrent means the database is at SchemaVersion.
	StatusCurrent
	// StatusMigrated means an older database was upgraded to SchemaVersion.
	StatusMigrated
)

func (s Status) String() string {
	switch s {
	case StatusNeedsCreation:
		return "needs creation"
	case StatusCurrent:
		return "current"
	case StatusMigrated:
		return "migrated"
	default:
		return "unknown"
	}
}

// migrations maps a version to the step that upgrades it to version+1.
// Steps must tolerate a database that already has the change, because a
// database that lost its version key is treated as version 1.
var migrations = map[int]func(s *Scope, dialect driver.Dialect) error{
	1: func(s *Scope, dialect driver.Dialect) error {
		ok, err := columnExists(s, dialect, "tasks", "comment")
		if err != nil || ok {
			return err
		}
		_, err = s.Exec(`ALTER TABLE tasks ADD COLUMN comment TEXT NOT NULL DEFAULT ''`)
		return err
	},
}

// columnExists reports whether table has column.
func columnExists(s *Scope, dialect driver.Dialect, table, column string) (bool, error) {
	query := `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	if dialect == driver.DialectPostgres {
		query = `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`
	}
	var n int
	if err := s.QueryRow(query, table, column).Scan(&n); err != nil {
		return false, scanError("check column "+table+"."+column, err)
	}
	return n > 0, nil
}

// VerifyDatabase checks the stored schema version and migrates older
// databases. A database without tables reports StatusNeedsCreation and is
// left untouched; call CreateTables next.
func (d *DB) VerifyDatabase(ctx context.Context) (Status, error) {
	exists, err := d.driver.TableExists(ctx, "metadata")
	if err != nil {
		return 0, tallyerrors.ErrTransaction("verify database", err)
	}
	if !exists {
		return StatusNeedsCreation, nil
	}

	stored, err := d.StoredSchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	switch {
	case stored > SchemaVersion:
		return 0, tallyerrors.ErrUnsupportedSchema(stored, SchemaVersion)
	case stored == SchemaVersion:
		return StatusCurrent, nil
	}

	if err := d.migrate(ctx, stored); err != nil {
		return 0, err
	}
	return StatusMigrated, nil
}

// StoredSchemaVersion returns the version recorded in metadata. Databases
// that predate the version key report 1.
func (d *DB) StoredSchemaVersion(ctx context.Context) (int, error) {
	value, ok, err := d.GetMetaData(ctx, SchemaVersionKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, tallyerrors.ErrUnsupportedSchema(0, SchemaVersion).
			WithCause(fmt.Errorf("parse %s %q: %w", SchemaVersionKey, value, err))
	}
	return v, nil
}

// CreateTables applies the embedded schema for the current dialect and
// records SchemaVersion, all in one transaction.
func (d *DB) CreateTables(ctx context.Context) error {
	content, err := schemaFS.ReadFile("schema/" + string(d.Dialect()) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	err = d.RunInTx(ctx, func(s *Scope) error {
		for _, stmt := range splitStatements(string(content)) {
			if _, err := s.Exec(stmt); err != nil {
				return err
			}
		}
		return setMetaData(s, SchemaVersionKey, strconv.Itoa(SchemaVersion))
	})
	if err != nil {
		return opError("create tables", err)
	}

	d.logger.Info("created database tables", "dialect", d.Dialect(), "version", SchemaVersion)
	return nil
}

func (d *DB) migrate(ctx context.Context, from int) error {
	backup, err := d.backup(ctx, from)
	if err != nil {
		return tallyerrors.ErrMigrationFailed(from, SchemaVersion, "", err)
	}

	err = d.RunInTx(ctx, func(s *Scope) error {
		for v := from; v < SchemaVersion; v++ {
			step, ok := migrations[v]
			if !ok {
				return fmt.Errorf("no migration from version %d", v)
			}
			if err := step(s, d.Dialect()); err != nil {
				return fmt.Errorf("migrate version %d: %w", v, err)
			}
		}
		return setMetaData(s, SchemaVersionKey, strconv.Itoa(SchemaVersion))
	})
	if err != nil {
		return tallyerrors.ErrMigrationFailed(from, SchemaVersion, backup, err)
	}

	d.logger.Info("migrated database", "from", from, "to", SchemaVersion, "backup", backup)
	return nil
}

// backup copies the SQLite file to <path>.v<version>-backup before a
// migration. In-memory and PostgreSQL databases are not backed up.
func (d *DB) backup(ctx context.Context, version int) (string, error) {
	if d.Dialect() != driver.DialectSQLite || d.path == MemoryDSN || d.path == "" {
		d.logger.Warn("skipping pre-migration backup", "dialect", d.Dialect(), "path", d.path)
		return "", nil
	}

	if cp, ok := d.driver.(interface{ Checkpoint(context.Context) error }); ok {
		if err := cp.Checkpoint(ctx); err != nil {
			return "", err
		}
	}

	dst := fmt.Sprintf("%s.v%d-backup", d.path, version)
	if err := copyFile(d.path, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", d.path, err)
	}
	d.logger.Info("backed up database", "path", dst)
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// splitStatements splits a schema file on ";" and drops comment-only chunks.
func splitStatements(content string) []string {
	var stmts []string
	for _, chunk := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			stmts = append(stmts, strings.Join(lines, "\n"))
		}
	}
	return stmts
}
