package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniqueIDs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		tasks TaskList
		want  bool
	}{
		{"empty", nil, true},
		{"single", TaskList{{ID: 1}}, true},
		{"distinct", TaskList{{ID: 1}, {ID: 2}, {ID: 3}}, true},
		{"duplicate", TaskList{{ID: 1}, {ID: 2}, {ID: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueIDs(tt.tasks))
		})
	}
}

func TestIsTree(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		tasks TaskList
		want  bool
	}{
		{"empty", nil, true},
		{"single root", TaskList{{ID: 1}}, true},
		{"parent and child", TaskList{{ID: 1}, {ID: 2, ParentID: 1}}, true},
		{"child listed first", TaskList{{ID: 2, ParentID: 1}, {ID: 1}}, true},
		{"forest", TaskList{{ID: 1}, {ID: 2}, {ID: 3, ParentID: 2}, {ID: 4, ParentID: 3}}, true},
		{"self reference", TaskList{{ID: 1}, {ID: 2, ParentID: 2}}, false},
		{"two node cycle", TaskList{{ID: 1}, {ID: 2, ParentID: 3}, {ID: 3, ParentID: 2}}, false},
		{"dangling parent", TaskList{{ID: 1}, {ID: 2, ParentID: 42}}, false},
		{"invalid task under root", TaskList{{ID: 1}, {ID: 0}}, false},
		{"invalid child", TaskList{{ID: 1}, {ID: -3, ParentID: 1}}, false},
		{"duplicate id revisits", TaskList{{ID: 1}, {ID: 2, ParentID: 1}, {ID: 2, ParentID: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTree(tt.tasks))
		})
	}
}

func TestIsTree_SelfReferenceAfterModify(t *testing.T) {
	t.Parallel()
	tasks := TaskList{{ID: 1, ParentID: 0}, {ID: 2, ParentID: 1}}
	assert.True(t, IsTree(tasks))

	tasks[1].ParentID = 2
	assert.False(t, IsTree(tasks))
}

func TestValidateTree(t *testing.T) {
	t.Parallel()

	unique, tree := ValidateTree(TaskList{{ID: 1}, {ID: 1}})
	assert.False(t, unique)
	assert.False(t, tree)

	unique, tree = ValidateTree(TaskList{{ID: 1}, {ID: 2, ParentID: 9}})
	assert.True(t, unique)
	assert.False(t, tree)

	unique, tree = ValidateTree(TaskList{{ID: 1}, {ID: 2, ParentID: 1}})
	assert.True(t, unique)
	assert.True(t, tree)
}

func TestTaskList_PathAndChildren(t *testing.T) {
	t.Parallel()
	tasks := TaskList{
		{ID: 1, Name: "Work"},
		{ID: 3, Name: "Meetings", ParentID: 1},
		{ID: 2, Name: "Code", ParentID: 1},
		{ID: 4, Name: "Review", ParentID: 2},
		{ID: 5, Name: "Loop", ParentID: 5},
	}

	assert.Equal(t, "Work/Code/Review", tasks.Path(4))
	assert.Equal(t, "Work", tasks.Path(1))
	assert.Equal(t, "", tasks.Path(99))
	assert.Equal(t, "Loop", tasks.Path(5))
	assert.Equal(t, []int{2, 3}, tasks.Children(1).IDs())
	assert.Empty(t, tasks.Children(5))
}

func TestTask_IsCurrentlyValid(t *testing.T) {
	t.Parallel()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	task := Task{ID: 1, ValidFrom: &from, ValidUntil: &until}

	assert.False(t, task.IsCurrentlyValid(from.Add(-time.Hour)))
	assert.True(t, task.IsCurrentlyValid(from.Add(time.Hour)))
	assert.False(t, task.IsCurrentlyValid(until.Add(time.Hour)))
	assert.True(t, Task{ID: 1}.IsCurrentlyValid(time.Now()))
}

func TestEvent_ValidAndDuration(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := Event{ID: 3, InstallationID: 1, Start: start, End: start.Add(90 * time.Minute)}

	assert.True(t, e.Valid())
	assert.Equal(t, 90*time.Minute, e.Duration())
	assert.False(t, Event{InstallationID: 1}.Valid())
	assert.False(t, Event{ID: 1}.Valid())
	assert.Equal(t, time.Duration(0), Event{Start: start, End: start.Add(-time.Minute)}.Duration())
	assert.False(t, e.Reported())
	assert.True(t, Event{ReportID: 4}.Reported())
}

func TestEvent_NormalizeDropsSubSecond(t *testing.T) {
	t.Parallel()
	local := time.FixedZone("X", 3600)
	e := Event{Start: time.Date(2024, 5, 1, 9, 0, 0, 999, local)}
	n := e.Normalize()

	assert.Equal(t, time.UTC, n.Start.Location())
	assert.Equal(t, 0, n.Start.Nanosecond())
	assert.True(t, n.End.IsZero())
}
