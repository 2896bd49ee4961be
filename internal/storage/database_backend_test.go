package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/config"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend string
		dsn     string
		code    tallyerrors.Code
	}{
		{"memory", config.BackendMemory, "", ""},
		{"sqlite", config.BackendSQLite, "/tmp/tally.db", ""},
		{"sqlite without path", config.BackendSQLite, "", tallyerrors.CodeConfigInvalid},
		{"postgres without dsn", config.BackendPostgres, "", tallyerrors.CodeConfigInvalid},
		{"postgres", config.BackendPostgres, "postgres://localhost/tally", ""},
		{"unknown", "oracle", "", tallyerrors.CodeUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.backend, Options{DSN: tt.dsn})
			if tt.code != "" {
				assert.True(t, tallyerrors.HasCode(err, tt.code), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.backend, b.Name())
			assert.False(t, b.Connected())
		})
	}
}

func TestDatabaseBackend_NotConnected(t *testing.T) {
	t.Parallel()
	b, err := NewBackend(config.BackendMemory, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.GetTasks(ctx)
	assert.True(t, tallyerrors.HasCode(err, tallyerrors.CodeNotConnected))
	err = b.AddTask(ctx, model.Task{ID: 1, Name: "x"})
	assert.True(t, tallyerrors.HasCode(err, tallyerrors.CodeNotConnected))
	assert.NotEmpty(t, b.SetAllTasksAndEvents(ctx, nil, nil))
	assert.NoError(t, b.Close())
}

func TestDatabaseBackend_Lifecycle(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "tally.db")
	b, err := NewBackend(config.BackendSQLite, Options{DSN: path})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Connect(ctx))
	require.NoError(t, b.Connect(ctx))
	assert.True(t, b.Connected())

	status, err := b.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsCreation, status)
	require.NoError(t, b.CreateTables(ctx))
	require.NoError(t, b.SetMetaData(ctx, "k", "v"))

	require.NoError(t, b.Close())
	assert.False(t, b.Connected())

	require.NoError(t, b.Connect(ctx))
	defer func() { _ = b.Close() }()
	status, err = b.VerifyDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, status)
	value, ok, err := b.GetMetaData(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestDatabaseBackend_TasksAndEvents(t *testing.T) {
	t.Parallel()
	b := NewTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.AddTask(ctx, model.Task{ID: 1, Name: "a"}))
	require.NoError(t, b.AddTask(ctx, model.Task{ID: 2, Name: "b", ParentID: 1}))
	require.NoError(t, b.ModifyTask(ctx, model.Task{ID: 2, Name: "b2", ParentID: 1}))

	task, err := b.GetTask(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "b2", task.Name)

	e, err := b.MakeEvent(ctx, model.Event{TaskID: 2, Comment: "work"})
	require.NoError(t, err)
	assert.True(t, e.Valid())
	assert.Equal(t, b.Configuration().InstallationID, e.InstallationID)

	e.Comment = "more work"
	require.NoError(t, b.ModifyEvent(ctx, e))
	got, err := b.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "more work", got.Comment)

	forTask, err := b.GetEventsForTask(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, forTask, 1)

	require.NoError(t, b.DeleteEvent(ctx, e.ID))
	all, err := b.GetEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, b.DeleteTask(ctx, 2))
	tasks, err := b.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, tasks.IDs())
}

func TestDatabaseBackend_Users(t *testing.T) {
	t.Parallel()
	b := NewTestBackend(t)
	ctx := context.Background()

	u, err := b.GetUser(ctx, b.Configuration().UserID)
	require.NoError(t, err)
	assert.Equal(t, "test", u.Name)

	u.Name = "renamed"
	require.NoError(t, b.ModifyUser(ctx, u))
	u, err = b.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", u.Name)

	inst, err := b.GetInstallation(ctx, b.Configuration().InstallationID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, inst.UserID)
}
