package controller

import (
	"context"

	"github.com/randalmurphal/tally/internal/model"
)

// GetTask returns the task with id.
func (c *Controller) GetTask(ctx context.Context, id int) (model.Task, error) {
	b, err := c.connected()
	if err != nil {
		return model.Task{}, err
	}
	return b.GetTask(ctx, id)
}

// GetTasks returns all tasks.
func (c *Controller) GetTasks(ctx context.Context) (model.TaskList, error) {
	b, err := c.connected()
	if err != nil {
		return nil, err
	}
	return b.GetTasks(ctx)
}

// AddTask stores t and publishes task_added.
func (c *Controller) AddTask(ctx context.Context, t model.Task) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	if err := b.AddTask(ctx, t); err != nil {
		return err
	}
	c.publish.TaskAdded(t)
	return nil
}

// ModifyTask overwrites the task with t.ID and publishes task_modified.
func (c *Controller) ModifyTask(ctx context.Context, t model.Task) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	prev, err := b.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := b.ModifyTask(ctx, t); err != nil {
		return err
	}
	c.publish.TaskModified(t, prev)
	return nil
}

// DeleteTask removes the task with id and its events and publishes
// task_deleted.
func (c *Controller) DeleteTask(ctx context.Context, id int) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	t, err := b.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := b.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.publish.TaskDeleted(t)
	return nil
}

// GetEvent returns the event with id.
func (c *Controller) GetEvent(ctx context.Context, id int) (model.Event, error) {
	b, err := c.connected()
	if err != nil {
		return model.Event{}, err
	}
	return b.GetEvent(ctx, id)
}

// GetEvents returns all events sorted by start.
func (c *Controller) GetEvents(ctx context.Context) (model.EventList, error) {
	b, err := c.connected()
	if err != nil {
		return nil, err
	}
	return b.GetEvents(ctx)
}

// GetEventsForTask returns the events recorded against taskID.
func (c *Controller) GetEventsForTask(ctx context.Context, taskID int) (model.EventList, error) {
	b, err := c.connected()
	if err != nil {
		return nil, err
	}
	return b.GetEventsForTask(ctx, taskID)
}

// MakeEvent stores e under a new id and publishes event_added.
func (c *Controller) MakeEvent(ctx context.Context, e model.Event) (model.Event, error) {
	b, err := c.connected()
	if err != nil {
		return model.Event{}, err
	}
	created, err := b.MakeEvent(ctx, e)
	if err != nil {
		return model.Event{}, err
	}
	c.publish.EventAdded(created)
	return created, nil
}

// ModifyEvent overwrites the event with e.ID and publishes event_modified.
func (c *Controller) ModifyEvent(ctx context.Context, e model.Event) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	prev, err := b.GetEvent(ctx, e.ID)
	if err != nil {
		return err
	}
	if err := b.ModifyEvent(ctx, e); err != nil {
		return err
	}
	c.publish.EventModified(e, prev)
	return nil
}

// DeleteEvent removes the event with id and publishes event_deleted.
func (c *Controller) DeleteEvent(ctx context.Context, id int) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	e, err := b.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := b.DeleteEvent(ctx, id); err != nil {
		return err
	}
	c.publish.EventDeleted(e)
	return nil
}

// SetAllTasksAndEvents replaces all tasks and events. It returns "" on
// success or a diagnostic, and publishes all_tasks_and_events_changed
// with the stored result.
func (c *Controller) SetAllTasksAndEvents(ctx context.Context, tasks model.TaskList, events model.EventList) string {
	b, err := c.connected()
	if err != nil {
		return err.Error()
	}
	if diag := b.SetAllTasksAndEvents(ctx, tasks, events); diag != "" {
		return diag
	}

	storedTasks, err := b.GetTasks(ctx)
	if err != nil {
		c.logger.Warn("reload tasks after replace", "error", err)
		storedTasks = tasks
	}
	storedEvents, err := b.GetEvents(ctx)
	if err != nil {
		c.logger.Warn("reload events after replace", "error", err)
		storedEvents = events
	}
	c.publish.AllReplaced(storedTasks, storedEvents)
	return ""
}
