package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

const eventColumns = `event_id, installation_id, report_id, task, user_id, comment, "start", "end"`

func scanEvent(sc rowScanner) (model.Event, error) {
	var (
		e          model.Event
		start, end int64
	)
	if err := sc.Scan(&e.ID, &e.InstallationID, &e.ReportID, &e.TaskID, &e.UserID, &e.Comment, &start, &end); err != nil {
		return model.Event{}, err
	}
	e.Start = fromUnix(start)
	e.End = fromUnix(end)
	return e, nil
}

// GetEvents returns all events ordered by start time.
func (d *DB) GetEvents(ctx context.Context) (model.EventList, error) {
	events, err := queryEvents(d.with(ctx), `SELECT `+eventColumns+` FROM events ORDER BY "start", event_id`)
	return events, opError("get events", err)
}

// GetEventsForTask returns the events recorded against taskID.
func (d *DB) GetEventsForTask(ctx context.Context, taskID int) (model.EventList, error) {
	events, err := queryEvents(d.with(ctx),
		`SELECT `+eventColumns+` FROM events WHERE task = ? ORDER BY "start", event_id`, taskID)
	return events, opError(fmt.Sprintf("get events for task %d", taskID), err)
}

// GetEvent returns the event with id.
func (d *DB) GetEvent(ctx context.Context, id int) (model.Event, error) {
	e, err := scanEvent(d.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, tallyerrors.ErrEventNotFound(id)
	}
	if err != nil {
		return model.Event{}, opError(fmt.Sprintf("get event %d", id), err)
	}
	return e, nil
}

// MakeEvent stores e under a newly allocated id and returns the stored
// event. The id comes from the row sequence and the installation id from
// the configuration; both are written in the same transaction as the
// insert, so the result is either Valid or an error.
func (d *DB) MakeEvent(ctx context.Context, e model.Event) (model.Event, error) {
	installation := d.cfg.InstallationID
	if installation == 0 {
		return model.Event{}, tallyerrors.ErrConfigInvalid("installation_id", "no installation is configured")
	}
	if e.UserID == 0 {
		e.UserID = d.cfg.UserID
	}
	e = e.Normalize()

	err := d.RunInTx(ctx, func(s *Scope) error {
		exists, err := taskExists(s, e.TaskID)
		if err != nil {
			return err
		}
		if !exists {
			return tallyerrors.ErrTaskNotFound(e.TaskID)
		}

		var rowID int
		err = s.QueryRow(`
			INSERT INTO events (report_id, task, user_id, comment, "start", "end")
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			e.ReportID, e.TaskID, e.UserID, e.Comment, toUnix(e.Start), toUnix(e.End)).Scan(&rowID)
		if err != nil {
			return scanError("insert event", err)
		}

		if _, err := s.Exec("UPDATE events SET event_id = ?, installation_id = ? WHERE id = ?",
			rowID, installation, rowID); err != nil {
			return err
		}
		e.ID = rowID
		e.InstallationID = installation
		return nil
	})
	if err != nil {
		return model.Event{}, opError("make event", err)
	}
	return e, nil
}

// ModifyEvent overwrites the stored event with e.ID.
func (d *DB) ModifyEvent(ctx context.Context, e model.Event) error {
	op := fmt.Sprintf("modify event %d", e.ID)
	e = e.Normalize()

	exists, err := taskExists(d.with(ctx), e.TaskID)
	if err != nil {
		return opError(op, err)
	}
	if !exists {
		return tallyerrors.ErrTaskNotFound(e.TaskID)
	}

	res, err := d.ExecContext(ctx, `
		UPDATE events SET installation_id = ?, report_id = ?, task = ?, user_id = ?, comment = ?, "start" = ?, "end" = ?
		WHERE event_id = ?`,
		e.InstallationID, e.ReportID, e.TaskID, e.UserID, e.Comment, toUnix(e.Start), toUnix(e.End), e.ID)
	if err != nil {
		return opError(op, err)
	}
	return requireAffected(res, op, tallyerrors.ErrEventNotFound(e.ID))
}

// DeleteEvent removes the event with id.
func (d *DB) DeleteEvent(ctx context.Context, id int) error {
	op := fmt.Sprintf("delete event %d", id)
	res, err := d.ExecContext(ctx, "DELETE FROM events WHERE event_id = ?", id)
	if err != nil {
		return opError(op, err)
	}
	return requireAffected(res, op, tallyerrors.ErrEventNotFound(id))
}

func queryEvents(q Queryer, query string, args ...any) (model.EventList, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events model.EventList
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func requireAffected(res sql.Result, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return opError(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
