package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/model"
)

func seed(t *testing.T, d *DB) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.AddTask(ctx, model.Task{ID: 1, Name: "a", Subscribed: true}))
	require.NoError(t, d.AddTask(ctx, model.Task{ID: 2, Name: "b", ParentID: 1}))
	_, err := d.MakeEvent(ctx, model.Event{TaskID: 2})
	require.NoError(t, err)
}

func TestSetAllTasksAndEvents_Empty(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	seed(t, d)

	assert.Equal(t, "", d.SetAllTasksAndEvents(ctx, nil, nil))

	tasks, err := d.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	events, err := d.GetEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSetAllTasksAndEvents_DropsOrphanEvents(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	seed(t, d)

	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	tasks := model.TaskList{
		{ID: 10, Name: "x"},
		{ID: 11, Name: "y", ParentID: 10},
	}
	events := model.EventList{
		{ID: 100, InstallationID: 3, TaskID: 11, Start: start, End: start.Add(time.Hour), Comment: "kept"},
		{ID: 101, InstallationID: 3, TaskID: 99, Start: start, End: start.Add(time.Hour), Comment: "orphan"},
		{ID: 102, InstallationID: 3, TaskID: 10, Start: start, End: start.Add(time.Minute)},
	}

	require.Equal(t, "", d.SetAllTasksAndEvents(ctx, tasks, events))

	gotTasks, err := d.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, gotTasks.IDs())

	gotEvents, err := d.GetEvents(ctx)
	require.NoError(t, err)
	require.Len(t, gotEvents, 2)
	ids := []int{gotEvents[0].ID, gotEvents[1].ID}
	assert.ElementsMatch(t, []int{100, 102}, ids)

	kept, err := d.GetEvent(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "kept", kept.Comment)
	assert.Equal(t, 3, kept.InstallationID)
	assert.Equal(t, time.Hour, kept.Duration())
}

func TestSetAllTasksAndEvents_NewEventsDoNotCollide(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	tasks := model.TaskList{{ID: 1, Name: "a"}}
	events := model.EventList{{ID: 50, InstallationID: 1, TaskID: 1}, {TaskID: 1}}
	require.Equal(t, "", d.SetAllTasksAndEvents(ctx, tasks, events))

	stored, err := d.GetEvents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, e := range stored {
		assert.True(t, e.Valid(), "event %+v", e)
	}

	e, err := d.MakeEvent(ctx, model.Event{TaskID: 1})
	require.NoError(t, err)
	for _, s := range stored {
		assert.NotEqual(t, s.ID, e.ID)
	}
}

func TestSetAllTasksAndEvents_SameIDAcrossInstallations(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	tasks := model.TaskList{{ID: 1, Name: "a"}}
	events := model.EventList{
		{ID: 5, InstallationID: 1, TaskID: 1, Comment: "laptop"},
		{ID: 5, InstallationID: 2, TaskID: 1, Comment: "desktop"},
		{ID: 9, InstallationID: 2, TaskID: 1},
	}
	require.Equal(t, "", d.SetAllTasksAndEvents(ctx, tasks, events))

	stored, err := d.GetEvents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	byInstallation := map[int][]int{}
	for _, e := range stored {
		byInstallation[e.InstallationID] = append(byInstallation[e.InstallationID], e.ID)
	}
	assert.ElementsMatch(t, []int{5}, byInstallation[1])
	assert.ElementsMatch(t, []int{5, 9}, byInstallation[2])

	// New events are numbered past every imported id.
	e, err := d.MakeEvent(ctx, model.Event{TaskID: 1})
	require.NoError(t, err)
	assert.Greater(t, e.ID, 9)
}

func TestSetAllTasksAndEvents_Subscriptions(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	seed(t, d)

	tasks := model.TaskList{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b", ParentID: 1, Subscribed: true},
		{ID: 3, Name: "c"},
	}
	require.Equal(t, "", d.SetAllTasksAndEvents(ctx, tasks, nil))

	got, err := d.GetTasks(ctx)
	require.NoError(t, err)
	subscribed := map[int]bool{}
	for _, task := range got {
		subscribed[task.ID] = task.Subscribed
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: false}, subscribed)
}

func TestSetAllTasksAndEvents_Diagnostics(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()
	seed(t, d)

	tests := []struct {
		name   string
		tasks  model.TaskList
		events model.EventList
	}{
		{"duplicate task ids", model.TaskList{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}, nil},
		{"cycle", model.TaskList{{ID: 1, Name: "a", ParentID: 2}, {ID: 2, Name: "b", ParentID: 1}}, nil},
		{"duplicate event ids", model.TaskList{{ID: 1, Name: "a"}},
			model.EventList{{ID: 5, InstallationID: 1, TaskID: 1}, {ID: 5, InstallationID: 1, TaskID: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, d.SetAllTasksAndEvents(ctx, tt.tasks, tt.events))

			tasks, err := d.GetTasks(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, tasks.IDs(), "database must be unchanged")
			events, err := d.GetEvents(ctx)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	}
}
