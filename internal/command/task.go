package command

import (
	"context"
	"fmt"
	"strings"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// AddTask creates a task. Undo deletes it again.
type AddTask struct {
	base
	task model.Task
}

// NewAddTask returns a command that adds t.
func NewAddTask(emitter Emitter, t model.Task) *AddTask {
	return &AddTask{
		base: newBase(fmt.Sprintf("add task %d", t.ID), emitter, true),
		task: t,
	}
}

// Task returns the task being added.
func (c *AddTask) Task() model.Task { return c.task }

// Prepare validates the task locally.
func (c *AddTask) Prepare() error {
	return c.prepare(func() error { return validateTask(c.task) })
}

// Execute adds the task.
func (c *AddTask) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error { return f.AddTask(ctx, c.task) })
}

// Rollback deletes the task.
func (c *AddTask) Rollback(ctx context.Context, f Facade) bool {
	return c.rollback(func() error { return f.DeleteTask(ctx, c.task.ID) })
}

// ModifyTask replaces a task. Undo restores the task as it was before
// the first execution.
type ModifyTask struct {
	base
	task     model.Task
	previous *model.Task
}

// NewModifyTask returns a command that overwrites the task with t.ID.
func NewModifyTask(emitter Emitter, t model.Task) *ModifyTask {
	return &ModifyTask{
		base: newBase(fmt.Sprintf("modify task %d", t.ID), emitter, true),
		task: t,
	}
}

// Task returns the new task state.
func (c *ModifyTask) Task() model.Task { return c.task }

// Previous returns the captured task state, once executed.
func (c *ModifyTask) Previous() (model.Task, bool) {
	if c.previous == nil {
		return model.Task{}, false
	}
	return *c.previous, true
}

// Prepare validates the task locally.
func (c *ModifyTask) Prepare() error {
	return c.prepare(func() error { return validateTask(c.task) })
}

// Execute captures the current task on first run and writes the new one.
func (c *ModifyTask) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		if c.previous == nil {
			prev, err := f.GetTask(ctx, c.task.ID)
			if err != nil {
				return err
			}
			c.previous = &prev
		}
		return f.ModifyTask(ctx, c.task)
	})
}

// Rollback writes the captured task back.
func (c *ModifyTask) Rollback(ctx context.Context, f Facade) bool {
	return c.rollback(func() error { return f.ModifyTask(ctx, *c.previous) })
}

// DeleteTask removes a task and all its events. It cannot be undone.
type DeleteTask struct {
	base
	id      int
	deleted model.Task
}

// NewDeleteTask returns a command that deletes the task with id.
func NewDeleteTask(emitter Emitter, id int) *DeleteTask {
	return &DeleteTask{
		base: newBase(fmt.Sprintf("delete task %d", id), emitter, false),
		id:   id,
	}
}

// Prepare checks the id.
func (c *DeleteTask) Prepare() error {
	return c.prepare(func() error {
		if c.id <= model.RootID {
			return tallyerrors.ErrInvalidTask(c.id)
		}
		return nil
	})
}

// Execute deletes the task.
func (c *DeleteTask) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		t, err := f.GetTask(ctx, c.id)
		if err != nil {
			return err
		}
		if err := f.DeleteTask(ctx, c.id); err != nil {
			return err
		}
		c.deleted = t
		return nil
	})
}

// Finalize reports the deleted task.
func (c *DeleteTask) Finalize() {
	c.finalize(fmt.Sprintf("Deleted task %q and its events", c.deleted.Name))
}

func validateTask(t model.Task) error {
	if !t.Valid() {
		return tallyerrors.ErrInvalidTask(t.ID)
	}
	if strings.TrimSpace(t.Name) == "" {
		return tallyerrors.ErrConfigInvalid("name", fmt.Sprintf("task %d needs a name", t.ID))
	}
	if t.ParentID == t.ID {
		return tallyerrors.ErrTaskCycle(t.ID, t.ParentID)
	}
	if t.ValidFrom != nil && t.ValidUntil != nil && t.ValidUntil.Before(*t.ValidFrom) {
		return tallyerrors.ErrConfigInvalid("valid_until", "must not be before valid_from")
	}
	return nil
}
