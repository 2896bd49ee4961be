package db

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// createV1Tables builds the version 1 layout, which lacks tasks.comment.
func createV1Tables(t *testing.T, d *DB) {
	t.Helper()
	ctx := context.Background()

	content, err := schemaFS.ReadFile("schema/sqlite.sql")
	require.NoError(t, err)
	v1 := strings.Replace(string(content),
		"    comment TEXT NOT NULL DEFAULT '',\n    name TEXT", "    name TEXT", 1)
	require.NotEqual(t, string(content), v1)

	for _, stmt := range splitStatements(v1) {
		_, err := d.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, d.SetMetaData(ctx, SchemaVersionKey, "1"))
	_, err = d.ExecContext(ctx, "INSERT INTO tasks (task_id, parent, trackable, name) VALUES (1, 0, 1, 'legacy')")
	require.NoError(t, err)
}

func TestVerifyDatabase_NeedsCreation(t *testing.T) {
	t.Parallel()
	d, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()

	status, err := d.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsCreation, status)

	require.NoError(t, d.CreateTables(ctx))
	status, err = d.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, status)

	v, err := d.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestVerifyDatabase_CurrentDoesNotMigrate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tally.db")
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()
	require.NoError(t, d.CreateTables(ctx))

	status, err := d.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, status)

	_, err = os.Stat(path + ".v" + strconv.Itoa(SchemaVersion) + "-backup")
	assert.True(t, os.IsNotExist(err), "no backup expected without a migration")
}

func TestVerifyDatabase_MigratesV1WithBackup(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tally.db")
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()
	createV1Tables(t, d)

	status, err := d.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusMigrated, status)

	info, err := os.Stat(path + ".v1-backup")
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	v, err := d.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	legacy, err := d.GetTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "legacy", legacy.Name)
	assert.Equal(t, "", legacy.Comment)

	legacy.Comment = "now possible"
	require.NoError(t, d.ModifyTask(ctx, legacy))

	backup, err := Open(path + ".v1-backup")
	require.NoError(t, err)
	t.Cleanup(func() { _ = backup.Close() })
	bv, err := backup.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, bv)
}

func TestVerifyDatabase_FailedMigrationKeepsBackup(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tally.db")
	fd := &faultDriver{Driver: driver.NewSQLite(), failOn: "ALTER TABLE"}
	d, err := OpenWithDriver(fd, path, WithConfiguration(config.DefaultConfiguration()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()
	createV1Tables(t, d)

	_, err = d.VerifyDatabase(ctx)
	require.Error(t, err)
	assert.True(t, tallyerrors.HasCode(err, tallyerrors.CodeMigrationFailed), "got %v", err)
	assert.True(t, tallyerrors.IsFatal(err))
	assert.ErrorIs(t, err, errInjected)

	backup := path + ".v1-backup"
	te := tallyerrors.AsTallyError(err)
	require.NotNil(t, te)
	assert.Contains(t, te.Fix, backup)

	_, err = os.Stat(backup)
	require.NoError(t, err)

	v, err := d.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	saved, err := Open(backup)
	require.NoError(t, err)
	t.Cleanup(func() { _ = saved.Close() })
	bv, err := saved.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, bv)
}

func TestVerifyDatabase_MigrationSkipsExistingColumn(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.AddTask(ctx, model.Task{ID: 1, Name: "kept", Comment: "c"}))
	require.NoError(t, d.DeleteMetaData(ctx, SchemaVersionKey))

	status, err := d.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusMigrated, status)

	v, err := d.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	task, err := d.GetTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "c", task.Comment)
}

func TestVerifyDatabase_InMemoryMigrationSkipsBackup(t *testing.T) {
	t.Parallel()
	d, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	createV1Tables(t, d)

	status, err := d.VerifyDatabase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusMigrated, status)
	require.NoError(t, d.AddTask(context.Background(), model.Task{ID: 2, Name: "n", Comment: "c"}))
}

func TestVerifyDatabase_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.SetMetaData(ctx, SchemaVersionKey, strconv.Itoa(SchemaVersion+1)))

	_, err := d.VerifyDatabase(ctx)
	require.Error(t, err)
	assert.True(t, tallyerrors.HasCode(err, tallyerrors.CodeUnsupportedSchema))
	assert.True(t, tallyerrors.IsFatal(err))
}

func TestVerifyDatabase_MissingVersionKeyIsV1(t *testing.T) {
	t.Parallel()
	d, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()
	createV1Tables(t, d)
	require.NoError(t, d.DeleteMetaData(ctx, SchemaVersionKey))

	v, err := d.StoredSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- only a comment\n;\nCREATE INDEX i ON a(x);\n")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x INT)", strings.TrimSpace(stmts[0]))
	assert.Equal(t, "CREATE INDEX i ON a(x)", strings.TrimSpace(stmts[1]))
}
