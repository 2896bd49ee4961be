package command

import (
	"context"
	"fmt"
	"time"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// MakeEvent records a new event. Undo deletes it; redo records it again
// under a new id, which is broadcast to the rest of the history.
type MakeEvent struct {
	base
	template model.Event
	created  model.Event
}

// NewMakeEvent returns a command that records an event for taskID.
// A zero start defaults to the time of Prepare and a zero end to start.
func NewMakeEvent(emitter Emitter, taskID int, start, end time.Time, comment string) *MakeEvent {
	return newMakeEvent(emitter, model.Event{TaskID: taskID, Start: start, End: end, Comment: comment})
}

// NewMakeEventFrom returns a command that records e. e.ID is ignored.
func NewMakeEventFrom(emitter Emitter, e model.Event) *MakeEvent {
	return newMakeEvent(emitter, e)
}

func newMakeEvent(emitter Emitter, e model.Event) *MakeEvent {
	e.ID = 0
	return &MakeEvent{
		base:     newBase(fmt.Sprintf("record event for task %d", e.TaskID), emitter, true),
		template: e,
	}
}

// Event returns the stored event, once executed.
func (c *MakeEvent) Event() model.Event { return c.created }

// Prepare fills in missing timestamps.
func (c *MakeEvent) Prepare() error {
	return c.prepare(func() error {
		if c.template.TaskID <= model.RootID {
			return tallyerrors.ErrInvalidTask(c.template.TaskID)
		}
		if c.template.Start.IsZero() {
			c.template.Start = c.now
		}
		if c.template.End.IsZero() {
			c.template.End = c.template.Start
		}
		if c.template.End.Before(c.template.Start) {
			return tallyerrors.ErrConfigInvalid("end", "must not be before start")
		}
		return nil
	})
}

// Execute stores the event. On redo the new id replaces the previous one
// everywhere in the history.
func (c *MakeEvent) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		e, err := f.MakeEvent(ctx, c.template)
		if err != nil {
			return err
		}
		old := c.created.ID
		c.created = e
		if old != 0 {
			c.remapped(old, e.ID)
		}
		return nil
	})
}

// Rollback deletes the stored event.
func (c *MakeEvent) Rollback(ctx context.Context, f Facade) bool {
	return c.rollback(func() error { return f.DeleteEvent(ctx, c.created.ID) })
}

// RemapEventID implements EventIDHolder.
func (c *MakeEvent) RemapEventID(old, new int) {
	if c.created.ID == old {
		c.created.ID = new
	}
}

// ModifyEvent overwrites an event. Undo restores the event as it was
// before the first execution.
type ModifyEvent struct {
	base
	event    model.Event
	previous *model.Event
}

// NewModifyEvent returns a command that overwrites the event with e.ID.
func NewModifyEvent(emitter Emitter, e model.Event) *ModifyEvent {
	return &ModifyEvent{
		base:  newBase(fmt.Sprintf("modify event %d", e.ID), emitter, true),
		event: e,
	}
}

// Event returns the new event state.
func (c *ModifyEvent) Event() model.Event { return c.event }

// Previous returns the captured event state, once executed.
func (c *ModifyEvent) Previous() (model.Event, bool) {
	if c.previous == nil {
		return model.Event{}, false
	}
	return *c.previous, true
}

// Prepare validates the event locally.
func (c *ModifyEvent) Prepare() error {
	return c.prepare(func() error {
		if c.event.ID == 0 {
			return tallyerrors.ErrEventNotFound(0)
		}
		if !c.event.End.IsZero() && c.event.End.Before(c.event.Start) {
			return tallyerrors.ErrConfigInvalid("end", "must not be before start")
		}
		return nil
	})
}

// Execute captures the current event on first run and writes the new one.
func (c *ModifyEvent) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		if c.previous == nil {
			prev, err := f.GetEvent(ctx, c.event.ID)
			if err != nil {
				return err
			}
			c.previous = &prev
		}
		return f.ModifyEvent(ctx, c.event)
	})
}

// Rollback writes the captured event back.
func (c *ModifyEvent) Rollback(ctx context.Context, f Facade) bool {
	return c.rollback(func() error { return f.ModifyEvent(ctx, *c.previous) })
}

// RemapEventID implements EventIDHolder.
func (c *ModifyEvent) RemapEventID(old, new int) {
	if c.event.ID == old {
		c.event.ID = new
	}
	if c.previous != nil && c.previous.ID == old {
		c.previous.ID = new
	}
}

// DeleteEvent removes an event. Undo stores a copy, which gets a new id
// that is broadcast to the rest of the history; redo deletes that id.
type DeleteEvent struct {
	base
	id      int
	deleted model.Event
}

// NewDeleteEvent returns a command that deletes the event with id.
func NewDeleteEvent(emitter Emitter, id int) *DeleteEvent {
	return &DeleteEvent{
		base: newBase(fmt.Sprintf("delete event %d", id), emitter, true),
		id:   id,
	}
}

// EventID returns the id the next Execute deletes.
func (c *DeleteEvent) EventID() int { return c.id }

// Prepare checks the id.
func (c *DeleteEvent) Prepare() error {
	return c.prepare(func() error {
		if c.id == 0 {
			return tallyerrors.ErrEventNotFound(0)
		}
		return nil
	})
}

// Execute captures and deletes the event.
func (c *DeleteEvent) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		e, err := f.GetEvent(ctx, c.id)
		if err != nil {
			return err
		}
		if err := f.DeleteEvent(ctx, c.id); err != nil {
			return err
		}
		c.deleted = e
		return nil
	})
}

// Rollback stores a copy of the deleted event and adopts its new id.
func (c *DeleteEvent) Rollback(ctx context.Context, f Facade) bool {
	return c.rollback(func() error {
		clone := c.deleted
		clone.ID = 0
		restored, err := f.MakeEvent(ctx, clone)
		if err != nil {
			return err
		}
		if restored.InstallationID != c.deleted.InstallationID {
			// Keep the originating installation of the deleted event.
			restored.InstallationID = c.deleted.InstallationID
			if err := f.ModifyEvent(ctx, restored); err != nil {
				_ = f.DeleteEvent(ctx, restored.ID)
				return err
			}
		}

		old := c.id
		c.id = restored.ID
		c.deleted = restored
		c.remapped(old, restored.ID)
		return nil
	})
}

// RemapEventID implements EventIDHolder.
func (c *DeleteEvent) RemapEventID(old, new int) {
	if c.id == old {
		c.id = new
		c.deleted.ID = new
	}
}
