package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/model"
)

type holder struct {
	ids []int
}

func (h *holder) RemapEventID(old, new int) {
	for i, id := range h.ids {
		if id == old {
			h.ids[i] = new
		}
	}
}

func TestBroadcaster(t *testing.T) {
	t.Parallel()
	b := &Broadcaster{}
	a, c := &holder{ids: []int{5, 6}}, &holder{ids: []int{5}}

	b.Subscribe(a)
	b.Subscribe(a)
	b.Subscribe(c)
	assert.Equal(t, 2, b.Len())

	b.Broadcast(5, 9)
	assert.Equal(t, []int{9, 6}, a.ids)
	assert.Equal(t, []int{9}, c.ids)

	b.Unsubscribe(c)
	b.Broadcast(6, 10)
	assert.Equal(t, []int{9, 10}, a.ids)
	assert.Equal(t, 1, b.Len())
}

func TestHistory_Empty(t *testing.T) {
	fx := newFixture(t)
	assert.False(t, fx.history.CanUndo())
	assert.False(t, fx.history.CanRedo())
	assert.False(t, fx.history.Undo(fx.ctx))
	assert.False(t, fx.history.Redo(fx.ctx))
	assert.Empty(t, fx.history.UndoName())
	assert.Empty(t, fx.history.RedoName())
	assert.Equal(t, "0/0", fx.history.String())
}

func TestHistory_PushRequiresExecuted(t *testing.T) {
	fx := newFixture(t)
	cmd := NewAddTask(fx.emitter, model.Task{ID: 1, Name: "A"})
	require.NoError(t, cmd.Prepare())
	assert.Error(t, fx.history.Push(cmd))
	assert.Zero(t, fx.history.Len())
}

func TestHistory_PushTruncatesRedoTail(t *testing.T) {
	fx := newFixture(t)
	first := NewAddTask(fx.emitter, model.Task{ID: 1, Name: "A"})
	second := NewAddTask(fx.emitter, model.Task{ID: 2, Name: "B"})
	fx.do(t, first)
	fx.do(t, second)

	require.True(t, fx.history.Undo(fx.ctx))
	assert.Equal(t, "add task 2", fx.history.RedoName())
	assert.Equal(t, []Entry{{"add task 1", true}, {"add task 2", false}}, fx.history.Entries())

	third := NewAddTask(fx.emitter, model.Task{ID: 3, Name: "C"})
	fx.do(t, third)

	assert.Equal(t, StateFinalized, second.State(), "redo tail is retired")
	assert.False(t, fx.history.CanRedo())
	assert.Equal(t, []Entry{{"add task 1", true}, {"add task 3", true}}, fx.history.Entries())
	assert.Equal(t, "add task 3", fx.history.UndoName())
}

func TestHistory_Limit(t *testing.T) {
	fx := newFixture(t)
	fx.history = NewHistory(fx.exec, 2)

	cmds := []*AddTask{
		NewAddTask(fx.emitter, model.Task{ID: 1, Name: "A"}),
		NewAddTask(fx.emitter, model.Task{ID: 2, Name: "B"}),
		NewAddTask(fx.emitter, model.Task{ID: 3, Name: "C"}),
	}
	for _, c := range cmds {
		fx.do(t, c)
	}

	assert.Equal(t, 2, fx.history.Len())
	assert.Equal(t, StateFinalized, cmds[0].State())
	assert.Equal(t, StateExecuted, cmds[2].State())

	require.True(t, fx.history.Undo(fx.ctx))
	require.True(t, fx.history.Undo(fx.ctx))
	assert.False(t, fx.history.Undo(fx.ctx))

	tasks, err := fx.backend.GetTasks(fx.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, tasks.IDs())
}

func TestHistory_FailedUndoKeepsPosition(t *testing.T) {
	fx := newFixture(t)
	add := NewAddTask(fx.emitter, model.Task{ID: 1, Name: "A"})
	fx.do(t, add)

	// A child makes the undo (delete) impossible.
	require.NoError(t, fx.backend.AddTask(fx.ctx, model.Task{ID: 2, ParentID: 1, Name: "child"}))

	assert.False(t, fx.history.Undo(fx.ctx))
	assert.True(t, fx.history.CanUndo())
	assert.Equal(t, StateExecuted, add.State())
	assert.Equal(t, LevelWarning, fx.emitter.last().level)
}

func TestHistory_BroadcastIsPerHistory(t *testing.T) {
	fx := newFixture(t)
	fx.addTasks(t, 1)
	e, err := fx.backend.MakeEvent(fx.ctx, model.Event{TaskID: 1})
	require.NoError(t, err)

	other := NewHistory(fx.exec, 0)
	outsider := NewModifyEvent(fx.emitter, e)
	require.NoError(t, outsider.Prepare())
	require.True(t, fx.exec.ExecuteCommand(fx.ctx, outsider))
	require.NoError(t, other.Push(outsider))

	del := NewDeleteEvent(fx.emitter, e.ID)
	fx.do(t, del)
	require.True(t, fx.history.Undo(fx.ctx))

	assert.NotEqual(t, e.ID, del.EventID())
	assert.Equal(t, e.ID, outsider.Event().ID, "other history is untouched")
}

func TestHistory_Clear(t *testing.T) {
	fx := newFixture(t)
	fx.addTasks(t, 1)
	e, err := fx.backend.MakeEvent(fx.ctx, model.Event{TaskID: 1})
	require.NoError(t, err)

	del := NewDeleteEvent(fx.emitter, e.ID)
	fx.do(t, del)
	assert.Equal(t, 1, fx.history.broadcaster.Len())

	fx.history.Clear()
	assert.Zero(t, fx.history.Len())
	assert.Zero(t, fx.history.broadcaster.Len())
	assert.Equal(t, StateFinalized, del.State())
	assert.Nil(t, del.broadcaster)
}
