package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/model"
)

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 30, 45, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", now},
		{"now", now},
		{"09:15", time.Date(2026, 6, 15, 9, 15, 0, 0, time.UTC)},
		{"2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2026-01-02 08:00", time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)},
		{"2026-01-02T08:00", time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)},
		{"2026-01-02T08:00:00+02:00", time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseWhen(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%q: got %v, want %v", tt.in, got, tt.want)
	}

	_, err := parseWhen("tomorrow-ish", now)
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("task", " 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseID("task", bad)
		assert.Error(t, err, bad)
	}
}

func TestIDList(t *testing.T) {
	assert.Equal(t, "", formatIDs(nil))
	assert.Equal(t, "3,1", formatIDs([]int{3, 1}))
	assert.Equal(t, []int{3, 1}, parseIDs("3, x,1,,0"))
	assert.Empty(t, parseIDs(""))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncate me", 6, "trunc…"},
		{"x", 0, ""},
		{"ab", 1, "…"},
		{"line\nbreak", 20, "line break"},
		{"äöüäöü", 4, "äöü…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, truncate(tt.input, tt.n), tt.input)
	}
}

func TestRenderTasks(t *testing.T) {
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := model.TaskList{
		{ID: 1, Name: "A", Trackable: true},
		{ID: 2, Name: "B", ParentID: 1, Trackable: true},
		{ID: 3, Name: "C", ParentID: 1, Trackable: false, Subscribed: true},
		{ID: 4, Name: "D", ParentID: 2, Trackable: true},
		{ID: 5, Name: "Gone", Trackable: true, ValidUntil: &past},
		{ID: 6, Name: "Under gone", ParentID: 5, Trackable: true},
	}
	p := &printer{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	lines, err := renderTasks(p, tasks, treeOptions{now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"└── A #1",
		"    ├── B #2",
		"    │   └── D #4",
		"    └── C #3 * (not trackable)",
	}, lines)

	lines, err = renderTasks(p, tasks, treeOptions{now: now, all: true})
	require.NoError(t, err)
	assert.Len(t, lines, 6)
	assert.Equal(t, "└── Gone #5 (expired)", lines[4])

	lines, err = renderTasks(p, tasks, treeOptions{now: now, all: true, match: "**/D"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A/B/D #4"}, lines)

	_, err = renderTasks(p, tasks, treeOptions{now: now, match: "[oops"})
	assert.Error(t, err)
}
