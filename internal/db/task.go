package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

const taskColumns = "task_id, parent, validfrom, validuntil, trackable, comment, name"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(sc rowScanner) (model.Task, error) {
	var (
		t           model.Task
		from, until sql.NullInt64
		trackable   int
	)
	if err := sc.Scan(&t.ID, &t.ParentID, &from, &until, &trackable, &t.Comment, &t.Name); err != nil {
		return model.Task{}, err
	}
	t.ValidFrom = fromNullUnix(from)
	t.ValidUntil = fromNullUnix(until)
	t.Trackable = trackable != 0
	return t, nil
}

// GetTasks returns all tasks ordered by id, with Subscribed set for the
// configured user.
func (d *DB) GetTasks(ctx context.Context) (model.TaskList, error) {
	tasks, err := loadTasks(d.with(ctx))
	if err != nil {
		return nil, opError("get tasks", err)
	}
	subs, err := loadSubscriptions(d.with(ctx), d.cfg.UserID)
	if err != nil {
		return nil, opError("get tasks", err)
	}
	for i := range tasks {
		tasks[i].Subscribed = subs[tasks[i].ID]
	}
	return tasks, nil
}

// GetTask returns the task with id.
func (d *DB) GetTask(ctx context.Context, id int) (model.Task, error) {
	t, err := scanTask(d.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE task_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, tallyerrors.ErrTaskNotFound(id)
	}
	if err != nil {
		return model.Task{}, opError(fmt.Sprintf("get task %d", id), err)
	}

	subscribed, err := isSubscribed(d.with(ctx), d.cfg.UserID, id)
	if err != nil {
		return model.Task{}, opError(fmt.Sprintf("get task %d", id), err)
	}
	t.Subscribed = subscribed
	return t, nil
}

// AddTask inserts t. The id must be unused and the parent must exist
// (or be the root). Subscribed subscribes the configured user.
func (d *DB) AddTask(ctx context.Context, t model.Task) error {
	if !t.Valid() {
		return tallyerrors.ErrInvalidTask(t.ID)
	}

	err := d.RunInTx(ctx, func(s *Scope) error {
		exists, err := taskExists(s, t.ID)
		if err != nil {
			return err
		}
		if exists {
			return tallyerrors.ErrDuplicateTask(t.ID)
		}
		if err := checkParent(s, t.ID, t.ParentID); err != nil {
			return err
		}
		if err := insertTask(s, t); err != nil {
			return err
		}
		if t.Subscribed {
			return subscribe(s, d.cfg.UserID, t.ID)
		}
		return nil
	})
	return opError(fmt.Sprintf("add task %d", t.ID), err)
}

// ModifyTask replaces the stored task with t. A parent change is rejected
// when the new parent is missing, is t itself, or lies below t.
func (d *DB) ModifyTask(ctx context.Context, t model.Task) error {
	err := d.RunInTx(ctx, func(s *Scope) error {
		exists, err := taskExists(s, t.ID)
		if err != nil {
			return err
		}
		if !exists {
			return tallyerrors.ErrTaskNotFound(t.ID)
		}
		if err := checkParent(s, t.ID, t.ParentID); err != nil {
			return err
		}
		if err := checkNoCycle(s, t.ID, t.ParentID); err != nil {
			return err
		}

		if _, err := s.Exec(`
			UPDATE tasks SET parent = ?, validfrom = ?, validuntil = ?, trackable = ?, comment = ?, name = ?
			WHERE task_id = ?`,
			t.ParentID, toNullUnix(t.ValidFrom), toNullUnix(t.ValidUntil), boolInt(t.Trackable),
			t.Comment, t.Name, t.ID); err != nil {
			return err
		}

		if t.Subscribed {
			return subscribe(s, d.cfg.UserID, t.ID)
		}
		return unsubscribe(s, d.cfg.UserID, t.ID)
	})
	return opError(fmt.Sprintf("modify task %d", t.ID), err)
}

// DeleteTask removes the task row and then all its events in one
// transaction. Tasks with subtasks cannot be deleted.
func (d *DB) DeleteTask(ctx context.Context, id int) error {
	err := d.RunInTx(ctx, func(s *Scope) error {
		exists, err := taskExists(s, id)
		if err != nil {
			return err
		}
		if !exists {
			return tallyerrors.ErrTaskNotFound(id)
		}

		var children int
		if err := s.QueryRow("SELECT COUNT(*) FROM tasks WHERE parent = ?", id).Scan(&children); err != nil {
			return scanError("count subtasks", err)
		}
		if children > 0 {
			return tallyerrors.ErrTaskHasChildren(id)
		}

		if _, err := s.Exec("DELETE FROM tasks WHERE task_id = ?", id); err != nil {
			return err
		}
		if _, err := s.Exec("DELETE FROM events WHERE task = ?", id); err != nil {
			return err
		}
		_, err = s.Exec("DELETE FROM subscriptions WHERE task = ?", id)
		return err
	})
	return opError(fmt.Sprintf("delete task %d", id), err)
}

func loadTasks(q Queryer) (model.TaskList, error) {
	rows, err := q.Query("SELECT " + taskColumns + " FROM tasks ORDER BY task_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks model.TaskList
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func insertTask(q Queryer, t model.Task) error {
	_, err := q.Exec(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ParentID, toNullUnix(t.ValidFrom), toNullUnix(t.ValidUntil), boolInt(t.Trackable),
		t.Comment, t.Name)
	return err
}

func taskExists(q Queryer, id int) (bool, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM tasks WHERE task_id = ?", id).Scan(&n); err != nil {
		return false, scanError("check task", err)
	}
	return n > 0, nil
}

func checkParent(q Queryer, id, parent int) error {
	if parent == model.RootID {
		return nil
	}
	if parent == id {
		return tallyerrors.ErrTaskCycle(id, parent)
	}
	exists, err := taskExists(q, parent)
	if err != nil {
		return err
	}
	if !exists {
		return tallyerrors.ErrParentNotFound(id, parent)
	}
	return nil
}

// checkNoCycle walks up from parent and fails if it reaches id.
func checkNoCycle(q Queryer, id, parent int) error {
	seen := make(map[int]bool)
	for p := parent; p != model.RootID; {
		if p == id {
			return tallyerrors.ErrTaskCycle(id, parent)
		}
		if seen[p] {
			// An existing cycle above parent; id is not part of it.
			return nil
		}
		seen[p] = true

		var next int
		err := q.QueryRow("SELECT parent FROM tasks WHERE task_id = ?", p).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return scanError("walk parents", err)
		}
		p = next
	}
	return nil
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
