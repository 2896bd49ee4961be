package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/randalmurphal/tally/internal/model"
)

type treeOptions struct {
	now time.Time
	// all includes tasks outside their validity window.
	all bool
	// match is a doublestar pattern over task paths; empty renders the tree.
	match string
}

// renderTasks returns the lines of a task listing.
func renderTasks(p *printer, tasks model.TaskList, opts treeOptions) ([]string, error) {
	if opts.match != "" {
		return matchTasks(p, tasks, opts)
	}

	var lines []string
	var walk func(parent int, prefix string)
	walk = func(parent int, prefix string) {
		var children model.TaskList
		for _, t := range tasks.Children(parent) {
			if opts.all || t.IsCurrentlyValid(opts.now) {
				children = append(children, t)
			}
		}
		for i, t := range children {
			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			lines = append(lines, prefix+branch+taskLabel(p, t, opts.now))
			walk(t.ID, prefix+next)
		}
	}
	walk(model.RootID, "")
	return lines, nil
}

func matchTasks(p *printer, tasks model.TaskList, opts treeOptions) ([]string, error) {
	if !doublestar.ValidatePattern(opts.match) {
		return nil, fmt.Errorf("invalid pattern %q", opts.match)
	}

	type row struct {
		path string
		task model.Task
	}
	var rows []row
	for _, t := range tasks {
		if !opts.all && !t.IsCurrentlyValid(opts.now) {
			continue
		}
		path := tasks.Path(t.ID)
		ok, err := doublestar.Match(opts.match, path)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", opts.match, err)
		}
		if ok {
			rows = append(rows, row{path, t})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].path < rows[j].path })

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s %s", r.path, p.render(styleSubtle, fmt.Sprintf("#%d", r.task.ID)))
	}
	return lines, nil
}

func taskLabel(p *printer, t model.Task, now time.Time) string {
	label := fmt.Sprintf("%s %s", p.render(styleTitle, t.Name), p.render(styleSubtle, fmt.Sprintf("#%d", t.ID)))
	if t.Subscribed {
		label += " " + p.render(styleActive, "*")
	}
	if !t.Trackable {
		label += " " + p.render(styleSubtle, "(not trackable)")
	}
	if !t.IsCurrentlyValid(now) {
		label += " " + p.render(styleSubtle, "(expired)")
	}
	return label
}
