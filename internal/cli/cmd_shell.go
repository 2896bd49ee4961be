package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/command"
	"github.com/randalmurphal/tally/internal/model"
)

const shellHelp = `Commands:
  tasks [pattern]                 show the task tree, or paths matching pattern
  events [task-id]                list events
  add-task <id> <parent> <name>   add a task (parent 0 = top level)
  rename-task <id> <name>         rename a task
  move-task <id> <parent>         change a task's parent
  delete-task <id>                delete a task and its events (not undoable)
  add-event <task-id> [comment]   record an event starting now
  stop-event <id>                 set an event's end to now
  comment-event <id> <comment>    change an event's comment
  delete-event <id>               delete an event
  undo, redo, history             walk the undo history
  help, quit`

// newShellCmd creates the shell command
func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with undo and redo",
		Long: `Start a line oriented session on the configured database.

Edits made in the session can be undone and redone. The history holds up
to history_limit edits and ends with the session.

` + shellHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				in := cmd.InOrStdin()
				s := newShell(a)
				interactive := false
				if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
					interactive = true
					fmt.Fprintln(a.out.w, a.out.render(styleSubtle, "type help for commands"))
				}
				return s.run(ctx, in, interactive)
			})
		},
	}
}

type shell struct {
	a       *app
	history *command.History
}

func newShell(a *app) *shell {
	return &shell{
		a:       a,
		history: command.NewHistory(a.ctrl, a.cfg.HistoryLimit, command.WithHistoryLogger(a.logger)),
	}
}

func (s *shell) run(ctx context.Context, in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(s.a.out.w, s.a.out.render(styleActive, "tally> "))
		}
		if !scanner.Scan() {
			break
		}
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil && !errors.Is(err, errReported) {
			PrintError(s.a.emitter.errOut.w, err)
		}
		if quit {
			break
		}
	}
	s.history.Clear()
	return scanner.Err()
}

// exec runs one line. Errors are reported and never end the session.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}
	name, args := fields[0], fields[1:]
	rest := func(from int) string { return strings.Join(args[from:], " ") }
	w := s.a.out.w

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d arguments; see help", name, n)
		}
		return nil
	}

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(w, shellHelp)
	case "undo":
		if !s.history.CanUndo() {
			return false, fmt.Errorf("nothing to undo")
		}
		undone := s.history.UndoName()
		if !s.history.Undo(ctx) {
			return false, errReported
		}
		fmt.Fprintf(w, "Undid %s\n", undone)
	case "redo":
		if !s.history.CanRedo() {
			return false, fmt.Errorf("nothing to redo")
		}
		redone := s.history.RedoName()
		if !s.history.Redo(ctx) {
			return false, errReported
		}
		fmt.Fprintf(w, "Redid %s\n", redone)
	case "history":
		entries := s.history.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(w, "History is empty")
		}
		for i, e := range entries {
			mark := " "
			if e.Applied {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %2d %s\n", mark, i+1, e.Name)
		}
	case "tasks":
		tasks, err := s.a.ctrl.GetTasks(ctx)
		if err != nil {
			return false, err
		}
		lines, err := renderTasks(s.a.out, tasks, treeOptions{now: time.Now(), match: rest(0)})
		if err != nil {
			return false, err
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	case "events":
		var evts model.EventList
		var err error
		if len(args) > 0 {
			id, perr := parseID("task", args[0])
			if perr != nil {
				return false, perr
			}
			evts, err = s.a.ctrl.GetEventsForTask(ctx, id)
		} else {
			evts, err = s.a.ctrl.GetEvents(ctx)
		}
		if err != nil {
			return false, err
		}
		tasks, err := s.a.ctrl.GetTasks(ctx)
		if err != nil {
			return false, err
		}
		printEvents(s.a, evts, tasks, nil)
	case "add-task":
		if err := need(3); err != nil {
			return false, err
		}
		id, err := parseID("task", args[0])
		if err != nil {
			return false, err
		}
		var parent int
		if args[1] != "0" {
			if parent, err = parseID("task", args[1]); err != nil {
				return false, err
			}
		}
		return false, s.do(ctx, command.NewAddTask(s.a.emitter, model.Task{ID: id, ParentID: parent, Name: rest(2), Trackable: true}))
	case "rename-task", "move-task":
		if err := need(2); err != nil {
			return false, err
		}
		id, err := parseID("task", args[0])
		if err != nil {
			return false, err
		}
		t, err := s.a.ctrl.GetTask(ctx, id)
		if err != nil {
			return false, err
		}
		if name == "rename-task" {
			t.Name = rest(1)
		} else if args[1] == "0" {
			t.ParentID = model.RootID
		} else if t.ParentID, err = parseID("task", args[1]); err != nil {
			return false, err
		}
		return false, s.do(ctx, command.NewModifyTask(s.a.emitter, t))
	case "delete-task":
		if err := need(1); err != nil {
			return false, err
		}
		id, err := parseID("task", args[0])
		if err != nil {
			return false, err
		}
		return false, s.do(ctx, command.NewDeleteTask(s.a.emitter, id))
	case "add-event":
		if err := need(1); err != nil {
			return false, err
		}
		id, err := parseID("task", args[0])
		if err != nil {
			return false, err
		}
		mk := command.NewMakeEvent(s.a.emitter, id, time.Time{}, time.Time{}, rest(1))
		if err := s.do(ctx, mk); err != nil {
			return false, err
		}
		fmt.Fprintf(w, "Recorded event %d\n", mk.Event().ID)
	case "stop-event", "comment-event":
		if err := need(1); err != nil {
			return false, err
		}
		id, err := parseID("event", args[0])
		if err != nil {
			return false, err
		}
		e, err := s.a.ctrl.GetEvent(ctx, id)
		if err != nil {
			return false, err
		}
		if name == "stop-event" {
			e.End = time.Now()
			if e.End.Before(e.Start) {
				e.End = e.Start
			}
		} else {
			e.Comment = rest(1)
		}
		return false, s.do(ctx, command.NewModifyEvent(s.a.emitter, e))
	case "delete-event":
		if err := need(1); err != nil {
			return false, err
		}
		id, err := parseID("event", args[0])
		if err != nil {
			return false, err
		}
		return false, s.do(ctx, command.NewDeleteEvent(s.a.emitter, id))
	default:
		return false, fmt.Errorf("unknown command %q; see help", name)
	}
	return false, nil
}

// do executes cmd and records it in the history when it can be undone.
func (s *shell) do(ctx context.Context, cmd command.Command) error {
	if err := s.a.do(ctx, cmd); err != nil {
		return err
	}
	if cmd.Undoable() {
		return s.history.Push(cmd)
	}
	return nil
}
