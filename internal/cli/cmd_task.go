package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/command"
	"github.com/randalmurphal/tally/internal/model"
)

// newTaskCmd creates the task command with subcommands.
func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the task tree",
		Long: `Manage the task tree.

Tasks have caller-chosen numeric ids. A task with parent 0 is top level.

Examples:
  tally task add 1 "Customer"
  tally task add 2 "Project" --parent 1 --subscribe
  tally task list
  tally task list --match "Customer/**"
  tally task edit 2 --name "Project X"
  tally task delete 2`,
	}

	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskEditCmd())
	cmd.AddCommand(newTaskDeleteCmd())

	return cmd
}

type taskFlags struct {
	name       string
	parent     int
	comment    string
	validFrom  string
	validUntil string
	trackable  bool
	subscribe  bool
}

func (f *taskFlags) register(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "Task name")
	}
	cmd.Flags().IntVarP(&f.parent, "parent", "p", 0, "Parent task id (0 = top level)")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Task comment")
	cmd.Flags().StringVar(&f.validFrom, "valid-from", "", "First day the task can be tracked")
	cmd.Flags().StringVar(&f.validUntil, "valid-until", "", "Last moment the task can be tracked")
	cmd.Flags().BoolVar(&f.trackable, "trackable", true, "Whether time can be recorded against the task")
	cmd.Flags().BoolVar(&f.subscribe, "subscribe", false, "Subscribe to the task")
}

// apply copies the flags that were set on cmd into t.
func (f *taskFlags) apply(cmd *cobra.Command, t *model.Task, now time.Time) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		t.Name = f.name
	}
	if changed("parent") {
		t.ParentID = f.parent
	}
	if changed("comment") {
		t.Comment = f.comment
	}
	if changed("trackable") {
		t.Trackable = f.trackable
	}
	if changed("subscribe") {
		t.Subscribed = f.subscribe
	}
	var err error
	if changed("valid-from") {
		if t.ValidFrom, err = parseOptionalTime(f.validFrom, now); err != nil {
			return err
		}
	}
	if changed("valid-until") {
		if t.ValidUntil, err = parseOptionalTime(f.validUntil, now); err != nil {
			return err
		}
	}
	return nil
}

// parseOptionalTime returns nil for an empty value, which clears the bound.
func parseOptionalTime(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseWhen(s, now)
	if err != nil {
		return nil, err
	}
	t = model.Timestamp(t)
	return &t, nil
}

func newTaskAddCmd() *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			t := model.Task{ID: id, Name: args[1], Trackable: true}
			if err := flags.apply(cmd, &t, time.Now()); err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.do(ctx, command.NewAddTask(a.emitter, t)); err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(a.out.w, "Added task %d %q\n", t.ID, t.Name)
				}
				return nil
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		match string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the task tree",
		Long: `Show the task tree.

Tasks outside their validity window are hidden unless --all is given.
--match filters by slash separated task path with ** and * globs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				tasks, err := a.ctrl.GetTasks(ctx)
				if err != nil {
					return err
				}
				lines, err := renderTasks(a.out, tasks, treeOptions{now: time.Now(), all: all, match: match})
				if err != nil {
					return err
				}
				if len(lines) == 0 {
					fmt.Fprintln(a.out.w, "No tasks found")
					return nil
				}
				for _, line := range lines {
					fmt.Fprintln(a.out.w, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&match, "match", "m", "", "Only show tasks whose path matches this glob")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include tasks outside their validity window")
	return cmd
}

func newTaskEditCmd() *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.ctrl.GetTask(ctx, id)
				if err != nil {
					return err
				}
				if err := flags.apply(cmd, &t, time.Now()); err != nil {
					return err
				}
				return a.do(ctx, command.NewModifyTask(a.emitter, t))
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and all its events",
		Long: `Delete a task and all time recorded against it.

Tasks that still have children cannot be deleted. This cannot be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.do(ctx, command.NewDeleteTask(a.emitter, id))
			})
		},
	}
}
