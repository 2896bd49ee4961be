package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
)

// Broadcaster delivers event id substitutions to its subscribers. Each
// History owns one; commands reach it only while they are in that History.
type Broadcaster struct {
	mu        sync.Mutex
	listeners []EventIDHolder
}

// Subscribe adds h. Subscribing twice has no effect.
func (b *Broadcaster) Subscribe(h EventIDHolder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listeners {
		if l == h {
			return
		}
	}
	b.listeners = append(b.listeners, h)
}

// Unsubscribe removes h.
func (b *Broadcaster) Unsubscribe(h EventIDHolder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l == h {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Broadcast rewrites old to new in every subscriber.
func (b *Broadcaster) Broadcast(old, new int) {
	b.mu.Lock()
	listeners := append([]EventIDHolder(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l.RemapEventID(old, new)
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Entry describes one history entry.
type Entry struct {
	Name    string
	Applied bool
}

// History is an undo/redo stack of executed commands. It holds the
// command objects themselves; undo and redo transition them in place.
type History struct {
	exec   Executor
	limit  int
	logger *slog.Logger

	entries []Command
	// applied is the number of entries currently in effect; entries past
	// it can be redone.
	applied     int
	broadcaster *Broadcaster
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryLogger sets the logger.
func WithHistoryLogger(l *slog.Logger) HistoryOption {
	return func(h *History) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHistory returns an empty history that runs transitions through exec.
// A limit of zero or less keeps every entry.
func NewHistory(exec Executor, limit int, opts ...HistoryOption) *History {
	h := &History{
		exec:        exec,
		limit:       limit,
		logger:      slog.Default(),
		broadcaster: &Broadcaster{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Push records a successfully executed undoable command. Entries that
// could have been redone are retired.
func (h *History) Push(cmd Command) error {
	if !cmd.Undoable() {
		return tallyerrors.ErrNotUndoable(cmd.Name())
	}
	if cmd.State() != StateExecuted {
		return tallyerrors.ErrInvalidTransition(string(cmd.State()), "history")
	}

	for _, stale := range h.entries[h.applied:] {
		h.retire(stale)
	}
	h.entries = append(h.entries[:h.applied], cmd)
	h.applied++

	cmd.core().broadcaster = h.broadcaster
	if holder, ok := cmd.(EventIDHolder); ok {
		h.broadcaster.Subscribe(holder)
	}

	for h.limit > 0 && len(h.entries) > h.limit {
		h.retire(h.entries[0])
		h.entries = h.entries[1:]
		h.applied--
	}
	h.logger.Debug("command recorded", "command", cmd.Name(), "history", h.String(),
		"id_holders", h.broadcaster.Len())
	return nil
}

// Undo rolls back the most recent applied command.
func (h *History) Undo(ctx context.Context) bool {
	if !h.CanUndo() {
		return false
	}
	cmd := h.entries[h.applied-1]
	if !h.exec.RollbackCommand(ctx, cmd) {
		h.logger.Warn("undo failed", "command", cmd.Name(), "error", cmd.Err())
		return false
	}
	h.applied--
	return true
}

// Redo re-executes the most recently undone command.
func (h *History) Redo(ctx context.Context) bool {
	if !h.CanRedo() {
		return false
	}
	cmd := h.entries[h.applied]
	if !h.exec.ExecuteCommand(ctx, cmd) {
		h.logger.Warn("redo failed", "command", cmd.Name(), "error", cmd.Err())
		return false
	}
	h.applied++
	return true
}

// CanUndo reports whether an applied command exists.
func (h *History) CanUndo() bool { return h.applied > 0 }

// CanRedo reports whether an undone command exists.
func (h *History) CanRedo() bool { return h.applied < len(h.entries) }

// UndoName names the command Undo would roll back.
func (h *History) UndoName() string {
	if !h.CanUndo() {
		return ""
	}
	return h.entries[h.applied-1].Name()
}

// RedoName names the command Redo would execute.
func (h *History) RedoName() string {
	if !h.CanRedo() {
		return ""
	}
	return h.entries[h.applied].Name()
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Entries lists the history, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	for i, cmd := range h.entries {
		out[i] = Entry{Name: cmd.Name(), Applied: i < h.applied}
	}
	return out
}

// Clear retires every entry.
func (h *History) Clear() {
	for _, cmd := range h.entries {
		h.retire(cmd)
	}
	h.entries = nil
	h.applied = 0
}

func (h *History) retire(cmd Command) {
	if holder, ok := cmd.(EventIDHolder); ok {
		h.broadcaster.Unsubscribe(holder)
	}
	cmd.core().retire()
}

// String summarizes the history position.
func (h *History) String() string {
	return fmt.Sprintf("%d/%d", h.applied, len(h.entries))
}
