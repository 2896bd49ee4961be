package db

import (
	"context"

	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// SetAllTasksAndEvents replaces every task and event in one transaction.
//
// Subscriptions survive for task ids present in tasks; tasks flagged
// Subscribed are subscribed for the configured user. Events whose task is
// not in tasks are dropped. Events keep their ids; events without an id
// get a new one.
//
// It returns "" on success, otherwise a diagnostic for the user. The
// database is unchanged when a diagnostic is returned.
func (d *DB) SetAllTasksAndEvents(ctx context.Context, tasks model.TaskList, events model.EventList) string {
	if unique, tree := model.ValidateTree(tasks); !unique {
		return tallyerrors.ErrDuplicateTaskIDs().Error()
	} else if !tree {
		return tallyerrors.ErrInvalidTaskTree().Error()
	}

	known := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	var imported, dropped int
	err := d.RunInTx(ctx, func(s *Scope) error {
		subs, err := loadAllSubscriptions(s)
		if err != nil {
			return err
		}

		for _, stmt := range []string{"DELETE FROM events", "DELETE FROM tasks", "DELETE FROM subscriptions"} {
			if _, err := s.Exec(stmt); err != nil {
				return err
			}
		}

		for _, t := range tasks {
			if err := insertTask(s, t); err != nil {
				return err
			}
			if t.Subscribed {
				if err := subscribe(s, d.cfg.UserID, t.ID); err != nil {
					return err
				}
			}
		}
		for _, sub := range subs {
			if known[sub.taskID] {
				if err := subscribe(s, sub.userID, sub.taskID); err != nil {
					return err
				}
			}
		}

		// Events that carry an id go in first; the sequence is then moved
		// past every imported id before id-less events are allocated.
		var fresh model.EventList
		for _, e := range events {
			if !known[e.TaskID] {
				dropped++
				continue
			}
			e = e.Normalize()
			if e.ID <= 0 {
				fresh = append(fresh, e)
				continue
			}
			if err := d.insertEvent(s, e); err != nil {
				return err
			}
			imported++
		}
		if err := d.advanceEventSequence(s); err != nil {
			return err
		}
		for _, e := range fresh {
			if err := d.insertEvent(s, e); err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		d.logger.Error("replace tasks and events failed", "error", err)
		return opError("replace tasks and events", err).Error()
	}

	d.logger.Info("replaced tasks and events",
		"tasks", len(tasks), "events", imported, "dropped_events", dropped)
	return ""
}

// insertEvent stores an event under a fresh row id. The event id and
// installation id are kept as given, so events from different
// installations may share an event id. An event without an id is
// allocated one from the row sequence.
func (d *DB) insertEvent(s *Scope, e model.Event) error {
	if e.InstallationID == 0 {
		e.InstallationID = d.cfg.InstallationID
	}
	if e.ID <= 0 {
		_, err := allocate(s, "events", "event_id", `
			INSERT INTO events (installation_id, report_id, task, user_id, comment, "start", "end")
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			e.InstallationID, e.ReportID, e.TaskID, e.UserID, e.Comment, toUnix(e.Start), toUnix(e.End))
		return err
	}

	var rowID int
	err := s.QueryRow(`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.ID, e.InstallationID, e.ReportID, e.TaskID, e.UserID, e.Comment, toUnix(e.Start), toUnix(e.End)).Scan(&rowID)
	return scanError("insert events", err)
}

// advanceEventSequence moves the events row sequence past the largest
// stored event id. MakeEvent uses the row id as the event id, so new
// events never reuse an imported id.
func (d *DB) advanceEventSequence(s *Scope) error {
	var err error
	switch d.Dialect() {
	case driver.DialectPostgres:
		_, err = s.Exec(`SELECT setval(pg_get_serial_sequence('events', 'id'),
			GREATEST((SELECT COALESCE(MAX(id), 0) FROM events), (SELECT COALESCE(MAX(event_id), 0) FROM events)) + 1,
			false)`)
	default:
		// sqlite_sequence has a row for events once any row was inserted.
		_, err = s.Exec(`UPDATE sqlite_sequence
			SET seq = MAX(seq, (SELECT COALESCE(MAX(event_id), 0) FROM events))
			WHERE name = 'events'`)
	}
	return err
}
