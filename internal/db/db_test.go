package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/db/driver"
	"github.com/randalmurphal/tally/internal/model"
)

// faultDriver wraps a real driver and fails transactional statements
// containing failOn.
type faultDriver struct {
	driver.Driver
	failOn        string
	noTransaction bool
}

var errInjected = errors.New("injected failure")

func (f *faultDriver) Transactional() bool {
	return !f.noTransaction && f.Driver.Transactional()
}

func (f *faultDriver) BeginTx(ctx context.Context, opts *sql.TxOptions) (driver.Tx, error) {
	tx, err := f.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &faultTx{Tx: tx, failOn: f.failOn}, nil
}

type faultTx struct {
	driver.Tx
	failOn string
}

func (t *faultTx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.failOn != "" && strings.Contains(query, t.failOn) {
		return nil, errInjected
	}
	return t.Tx.Exec(ctx, query, args...)
}

// Checkpoint forwards to the wrapped driver so file backups stay complete.
func (f *faultDriver) Checkpoint(ctx context.Context) error {
	if cp, ok := f.Driver.(interface{ Checkpoint(context.Context) error }); ok {
		return cp.Checkpoint(ctx)
	}
	return nil
}

func newFaultDB(t *testing.T, fd *faultDriver) *DB {
	t.Helper()
	fd.Driver = driver.NewSQLite()
	d, err := OpenWithDriver(fd, MemoryDSN, WithConfiguration(config.DefaultConfiguration()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewTestDB(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	assert.Equal(t, driver.DialectSQLite, d.Dialect())
	assert.Equal(t, MemoryDSN, d.Path())
	assert.NotZero(t, d.Configuration().UserID)
	assert.NotZero(t, d.Configuration().InstallationID)

	status, err := d.VerifyDatabase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, status)
}

func TestScope_CloseRollsBack(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	s, err := d.Begin(ctx)
	require.NoError(t, err)
	_, err = s.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", "k", "v")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, s.Committed())

	_, ok, err := d.GetMetaData(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted write must be rolled back")
}

func TestScope_CommitDisablesRollback(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	s, err := d.Begin(ctx)
	require.NoError(t, err)
	_, err = s.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", "k", "v")
	require.NoError(t, err)
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())
	assert.True(t, s.Committed())

	value, ok, err := d.GetMetaData(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	var txErr *TxError
	assert.ErrorAs(t, s.Commit(), &txErr, "second commit must fail")
}

func TestScope_StatementErrorIsTxError(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	err := d.RunInTx(context.Background(), func(s *Scope) error {
		_, err := s.Exec("INSERT INTO no_such_table VALUES (1)")
		return err
	})

	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "exec", txErr.Op)
}

func TestBegin_FailsWithoutTransactions(t *testing.T) {
	t.Parallel()
	d := newFaultDB(t, &faultDriver{noTransaction: true})

	_, err := d.Begin(context.Background())
	require.ErrorIs(t, err, ErrNoTransactions)
}

func TestMetaData(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	_, ok, err := d.GetMetaData(ctx, "duration_format")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SetMetaData(ctx, "duration_format", "minutes"))
	require.NoError(t, d.SetMetaData(ctx, "duration_format", "decimal"))

	value, ok, err := d.GetMetaData(ctx, "duration_format")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "decimal", value)

	require.NoError(t, d.DeleteMetaData(ctx, "duration_format"))
	_, ok, err = d.GetMetaData(ctx, "duration_format")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersAndInstallations(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	u1, err := d.MakeUser(ctx, "ada")
	require.NoError(t, err)
	u2, err := d.MakeUser(ctx, "grace")
	require.NoError(t, err)
	assert.NotEqual(t, u1.ID, u2.ID)
	assert.True(t, u1.Valid())

	require.NoError(t, d.ModifyUser(ctx, model.User{ID: u1.ID, Name: "ada l."}))
	got, err := d.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada l.", got.Name)

	inst, err := d.MakeInstallation(ctx, "laptop", u2.ID)
	require.NoError(t, err)
	gotInst, err := d.GetInstallation(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, u2.ID, gotInst.UserID)
	assert.Equal(t, "laptop", gotInst.Name)

	_, err = d.GetUser(ctx, 999)
	assert.Error(t, err)
	_, err = d.GetInstallation(ctx, 999)
	assert.Error(t, err)
	assert.Error(t, d.ModifyUser(ctx, model.User{ID: 999, Name: "nobody"}))
}
