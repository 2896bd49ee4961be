package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/command"
	"github.com/randalmurphal/tally/internal/model"
)

// activeEventsKey is the MetaData key listing the events started with
// "event start" and not stopped yet.
const activeEventsKey = "active_events"

// newEventCmd creates the event command with subcommands.
func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "event",
		Aliases: []string{"events"},
		Short:   "Record and edit time",
		Long: `Record and edit time spent on tasks.

Times accept "15:04" (today), "2006-01-02 15:04" and RFC 3339.

Examples:
  tally event start 2 --comment "review"
  tally event stop
  tally event add 2 --start 09:00 --end 10:30
  tally event list --task 2
  tally event edit 14 --comment "pairing"
  tally event delete 14`,
	}

	cmd.AddCommand(newEventAddCmd())
	cmd.AddCommand(newEventStartCmd())
	cmd.AddCommand(newEventStopCmd())
	cmd.AddCommand(newEventListCmd())
	cmd.AddCommand(newEventEditCmd())
	cmd.AddCommand(newEventDeleteCmd())

	return cmd
}

func newEventAddCmd() *cobra.Command {
	var start, end, comment string

	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Record a finished event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			from, err := parseWhen(start, now)
			if err != nil {
				return err
			}
			to := from
			if end != "" {
				if to, err = parseWhen(end, now); err != nil {
					return err
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				mk := command.NewMakeEvent(a.emitter, taskID, from, to, comment)
				if err := a.do(ctx, mk); err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(a.out.w, "Recorded event %d\n", mk.Event().ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start time (default now)")
	cmd.Flags().StringVar(&end, "end", "", "End time (default start)")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Comment")
	return cmd
}

func newEventStartCmd() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start recording time on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.Configuration().RequestEventComment && comment == "" {
					return fmt.Errorf("a comment is required (--comment); see 'tally config get request_event_comment'")
				}
				mk := command.NewMakeEvent(a.emitter, taskID, time.Time{}, time.Time{}, comment)
				if err := a.do(ctx, mk); err != nil {
					return err
				}

				active, err := loadActive(ctx, a)
				if err != nil {
					return err
				}
				if err := saveActive(ctx, a, append(active, mk.Event().ID)); err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(a.out.w, "Started event %d on %s\n", mk.Event().ID, taskPath(ctx, a, taskID))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Comment")
	return cmd
}

func newEventStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [event-id]",
		Short: "Stop running events",
		Long:  "Stop the given running event, or all of them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				active, err := loadActive(ctx, a)
				if err != nil {
					return err
				}
				stop := active
				if len(args) == 1 {
					id, err := parseID("event", args[0])
					if err != nil {
						return err
					}
					if !slices.Contains(active, id) {
						return fmt.Errorf("event %d is not running", id)
					}
					stop = []int{id}
				}
				if len(stop) == 0 {
					return fmt.Errorf("no running events")
				}

				now := time.Now()
				var firstErr error
				remaining := slices.Clone(active)
				for _, id := range stop {
					e, err := a.ctrl.GetEvent(ctx, id)
					if err == nil {
						e.End = now
						if e.End.Before(e.Start) {
							e.End = e.Start
						}
						err = a.do(ctx, command.NewModifyEvent(a.emitter, e))
					}
					if err != nil {
						if firstErr == nil {
							firstErr = err
						}
						continue
					}
					remaining = slices.DeleteFunc(remaining, func(x int) bool { return x == id })
					if !quiet {
						fmt.Fprintf(a.out.w, "Stopped event %d after %s\n", id, a.Configuration().DurationFormat.Format(e.Duration()))
					}
				}
				if err := saveActive(ctx, a, remaining); err != nil {
					return err
				}
				return firstErr
			})
		},
	}
}

func newEventListCmd() *cobra.Command {
	var (
		taskID   int
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			var since, until time.Time
			var err error
			if from != "" {
				if since, err = parseWhen(from, now); err != nil {
					return err
				}
			}
			if to != "" {
				if until, err = parseWhen(to, now); err != nil {
					return err
				}
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				var evts model.EventList
				var err error
				if taskID != 0 {
					evts, err = a.ctrl.GetEventsForTask(ctx, taskID)
				} else {
					evts, err = a.ctrl.GetEvents(ctx)
				}
				if err != nil {
					return err
				}
				tasks, err := a.ctrl.GetTasks(ctx)
				if err != nil {
					return err
				}
				active, err := loadActive(ctx, a)
				if err != nil {
					return err
				}

				evts = slices.DeleteFunc(evts, func(e model.Event) bool {
					return (!since.IsZero() && e.Start.Before(since)) || (!until.IsZero() && e.Start.After(until))
				})
				printEvents(a, evts, tasks, active)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&taskID, "task", "t", 0, "Only events of this task")
	cmd.Flags().StringVar(&from, "from", "", "Only events starting at or after this time")
	cmd.Flags().StringVar(&to, "to", "", "Only events starting at or before this time")
	return cmd
}

func printEvents(a *app, evts model.EventList, tasks model.TaskList, active []int) {
	if len(evts) == 0 {
		fmt.Fprintln(a.out.w, "No events found")
		return
	}
	format := a.Configuration().DurationFormat

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tDURATION\tTASK\tCOMMENT")
	for _, e := range evts {
		end := formatTime(e.End)
		if slices.Contains(active, e.ID) {
			end = "running"
		}
		comment := e.Comment
		if e.Reported() {
			comment = strings.TrimSpace("[reported] " + comment)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, formatTime(e.Start), end, format.Format(e.Duration()), tasks.Path(e.TaskID), comment)
	}
	_ = tw.Flush()

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	fmt.Fprintln(a.out.w, a.out.render(styleTitle, lines[0]))
	for _, line := range lines[1:] {
		fmt.Fprintln(a.out.w, a.out.fit(line, 0))
	}
	fmt.Fprintln(a.out.w, a.out.render(styleSubtle, fmt.Sprintf("Total: %s in %d events", format.Format(evts.TotalDuration()), len(evts))))
}

func newEventEditCmd() *cobra.Command {
	var (
		start, end, comment string
		taskID              int
	)

	cmd := &cobra.Command{
		Use:   "edit <event-id>",
		Short: "Change an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("event", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.ctrl.GetEvent(ctx, id)
				if err != nil {
					return err
				}
				now := time.Now()
				if cmd.Flags().Changed("start") {
					if e.Start, err = parseWhen(start, now); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("end") {
					if e.End, err = parseWhen(end, now); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("comment") {
					e.Comment = comment
				}
				if cmd.Flags().Changed("task") {
					e.TaskID = taskID
				}
				return a.do(ctx, command.NewModifyEvent(a.emitter, e))
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "New start time")
	cmd.Flags().StringVar(&end, "end", "", "New end time")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "New comment")
	cmd.Flags().IntVarP(&taskID, "task", "t", 0, "Move the event to this task")
	return cmd
}

func newEventDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("event", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.do(ctx, command.NewDeleteEvent(a.emitter, id)); err != nil {
					return err
				}
				active, err := loadActive(ctx, a)
				if err != nil {
					return err
				}
				if slices.Contains(active, id) {
					if err := saveActive(ctx, a, slices.DeleteFunc(active, func(x int) bool { return x == id })); err != nil {
						return err
					}
				}
				if !quiet {
					fmt.Fprintf(a.out.w, "Deleted event %d\n", id)
				}
				return nil
			})
		},
	}
}

func loadActive(ctx context.Context, a *app) ([]int, error) {
	value, _, err := a.ctrl.MetaData(ctx, activeEventsKey)
	if err != nil {
		return nil, err
	}
	return parseIDs(value), nil
}

func saveActive(ctx context.Context, a *app, ids []int) error {
	return a.ctrl.SetMetaData(ctx, activeEventsKey, formatIDs(ids))
}

func taskPath(ctx context.Context, a *app, id int) string {
	tasks, err := a.ctrl.GetTasks(ctx)
	if err != nil {
		return fmt.Sprintf("task %d", id)
	}
	return tasks.Path(id)
}
