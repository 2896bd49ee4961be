// Package command implements tally's reversible edits: the command
// protocol, the concrete task, event and database commands, and the undo
// history that replays them.
//
// A command goes through
//
//	created -> prepared -> executed <-> rolled_back -> finalized
//
// Prepare runs on the issuing side and never touches storage. Execute and
// Rollback run against a Facade and report success as a bool; a false
// result means nothing changed. After every transition the executor calls
// Emitter.CommandCompleted, and the emitter calls Finalize, which is the
// only place user-facing messages are produced.
package command

import (
	"context"
	"time"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// State is the lifecycle state of a command.
type State string

const (
	StateCreated    State = "created"
	StatePrepared   State = "prepared"
	StateExecuted   State = "executed"
	StateRolledBack State = "rolled_back"
	StateFinalized  State = "finalized"
)

// Level is the severity of a message shown by an Emitter.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Emitter is the issuing side of a command. It is told when a transition
// completed and displays the messages produced by Finalize.
type Emitter interface {
	CommandCompleted(cmd Command)
	ShowMessage(level Level, title, text string)
}

// Facade is the controller surface commands operate on.
type Facade interface {
	GetTask(ctx context.Context, id int) (model.Task, error)
	GetTasks(ctx context.Context) (model.TaskList, error)
	AddTask(ctx context.Context, t model.Task) error
	ModifyTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id int) error

	GetEvent(ctx context.Context, id int) (model.Event, error)
	GetEvents(ctx context.Context) (model.EventList, error)
	MakeEvent(ctx context.Context, e model.Event) (model.Event, error)
	ModifyEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id int) error

	SetAllTasksAndEvents(ctx context.Context, tasks model.TaskList, events model.EventList) string
}

// Executor runs command transitions and notifies the command's emitter.
// The controller implements it.
type Executor interface {
	ExecuteCommand(ctx context.Context, cmd Command) bool
	RollbackCommand(ctx context.Context, cmd Command) bool
}

// Command is a reversible (or one-shot) edit. Commands are created only
// through the New* constructors of this package.
type Command interface {
	// Name describes the command for history listings.
	Name() string
	Prepare() error
	Execute(ctx context.Context, f Facade) bool
	Rollback(ctx context.Context, f Facade) bool
	Finalize()

	State() State
	Undoable() bool
	// Err returns the failure of the last transition, or nil.
	Err() error
	Emitter() Emitter

	core() *base
}

// EventIDHolder is implemented by commands that refer to events by id.
// When storage assigns a new id to a resurrected event, every holder in
// the same History rewrites old to new.
type EventIDHolder interface {
	RemapEventID(old, new int)
}

// base carries the state shared by all commands.
type base struct {
	name     string
	emitter  Emitter
	undoable bool

	state State
	// executedOnce is set after the first successful Execute.
	executedOnce bool
	// lastOK is the result of the most recent transition.
	lastOK bool
	err    error
	now    time.Time

	broadcaster *Broadcaster
	// clock is replaced in tests.
	clock func() time.Time
}

func newBase(name string, emitter Emitter, undoable bool) base {
	if emitter == nil {
		panic("command: nil emitter")
	}
	return base{
		name:     name,
		emitter:  emitter,
		undoable: undoable,
		state:    StateCreated,
		clock:    time.Now,
	}
}

func (b *base) core() *base { return b }

// Name describes the command.
func (b *base) Name() string { return b.name }

// State returns the current lifecycle state.
func (b *base) State() State { return b.state }

// Undoable reports whether Rollback is supported.
func (b *base) Undoable() bool { return b.undoable }

// Err returns the failure of the last transition.
func (b *base) Err() error { return b.err }

// Emitter returns the issuing side.
func (b *base) Emitter() Emitter { return b.emitter }

// prepare moves Created to Prepared after validate succeeds.
func (b *base) prepare(validate func() error) error {
	if b.state != StateCreated {
		return tallyerrors.ErrInvalidTransition(string(b.state), string(StatePrepared))
	}
	b.now = model.Timestamp(b.clock())
	if validate != nil {
		if err := validate(); err != nil {
			b.err = err
			return err
		}
	}
	b.state = StatePrepared
	return nil
}

// run performs an execute or rollback transition. from lists the states
// the transition is allowed from; on success the command moves to to.
func (b *base) run(to State, fn func() error, from ...State) bool {
	allowed := false
	for _, s := range from {
		if b.state == s {
			allowed = true
			break
		}
	}
	if !allowed {
		b.lastOK = false
		b.err = tallyerrors.ErrInvalidTransition(string(b.state), string(to))
		return false
	}

	if err := fn(); err != nil {
		b.lastOK = false
		b.err = err
		return false
	}
	b.lastOK = true
	b.err = nil
	b.state = to
	if to == StateExecuted {
		b.executedOnce = true
	}
	return true
}

func (b *base) execute(fn func() error) bool {
	return b.run(StateExecuted, fn, StatePrepared, StateRolledBack)
}

func (b *base) rollback(fn func() error) bool {
	if !b.undoable {
		b.lastOK = false
		b.err = tallyerrors.ErrNotUndoable(b.name)
		return false
	}
	return b.run(StateRolledBack, fn, StateExecuted)
}

// Rollback is the default for one-shot commands: it reports not undoable.
func (b *base) Rollback(ctx context.Context, f Facade) bool {
	return b.rollback(nil)
}

// finalize reports the outcome of the last transition through the
// emitter. success is shown after a successful transition when non-empty.
func (b *base) finalize(success string) {
	if b.state == StateFinalized {
		return
	}

	if b.err != nil {
		level := LevelWarning
		if tallyerrors.IsFatal(b.err) {
			level = LevelCritical
		}
		b.emitter.ShowMessage(level, b.name, userMessage(b.err))
	} else if b.lastOK && success != "" {
		b.emitter.ShowMessage(LevelInfo, b.name, success)
	}

	switch {
	case b.state == StatePrepared || b.state == StateCreated:
		// The first execute failed; the command never took effect.
		b.state = StateFinalized
	case !b.undoable && b.state == StateExecuted:
		b.state = StateFinalized
	}
}

// retire ends the command's life in a History.
func (b *base) retire() {
	b.state = StateFinalized
	b.broadcaster = nil
}

// remapped announces that storage replaced event id old with new.
func (b *base) remapped(old, new int) {
	if b.broadcaster != nil && old != new {
		b.broadcaster.Broadcast(old, new)
	}
}

func userMessage(err error) string {
	if te := tallyerrors.AsTallyError(err); te != nil {
		msg := te.What
		if te.Fix != "" {
			msg += ". " + te.Fix
		}
		return msg
	}
	return err.Error()
}

// Finalize reports the outcome of the last transition.
func (b *base) Finalize() {
	b.finalize("")
}
