package model

import (
	"sort"
	"time"
)

// Event is a single timed occurrence of work against one task.
// The id is allocated by storage, never by the caller.
type Event struct {
	ID             int
	InstallationID int
	UserID         int
	ReportID       int
	TaskID         int
	Start          time.Time
	End            time.Time
	Comment        string
}

// Valid reports whether the event was allocated by storage.
func (e Event) Valid() bool {
	return e.ID != 0 && e.InstallationID != 0
}

// Duration returns End - Start, or zero when the event runs backwards.
func (e Event) Duration() time.Duration {
	d := e.End.Sub(e.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Reported reports whether the event was included in a submitted report.
func (e Event) Reported() bool {
	return e.ReportID != 0
}

// Normalize returns a copy with UTC timestamps truncated to whole seconds,
// which is the precision storage keeps.
func (e Event) Normalize() Event {
	e.Start = Timestamp(e.Start)
	e.End = Timestamp(e.End)
	return e
}

// Equal compares all fields at storage precision.
func (e Event) Equal(o Event) bool {
	a, b := e.Normalize(), o.Normalize()
	return a.ID == b.ID &&
		a.InstallationID == b.InstallationID &&
		a.UserID == b.UserID &&
		a.ReportID == b.ReportID &&
		a.TaskID == b.TaskID &&
		a.Start.Equal(b.Start) &&
		a.End.Equal(b.End) &&
		a.Comment == b.Comment
}

// Timestamp converts t to UTC at second precision. The zero time stays zero.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}

// EventList is a list of events.
type EventList []Event

// SortByStart orders the list by start time, then id.
func (l EventList) SortByStart() {
	sort.Slice(l, func(i, j int) bool {
		if !l[i].Start.Equal(l[j].Start) {
			return l[i].Start.Before(l[j].Start)
		}
		return l[i].ID < l[j].ID
	})
}

// Find returns the event with id.
func (l EventList) Find(id int) (Event, bool) {
	for _, e := range l {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// TotalDuration sums the durations of all events.
func (l EventList) TotalDuration() time.Duration {
	var total time.Duration
	for _, e := range l {
		total += e.Duration()
	}
	return total
}

// User is the person owning a local configuration.
type User struct {
	ID   int
	Name string
}

// Valid reports whether the user has been stored.
func (u User) Valid() bool {
	return u.ID > 0
}

// Installation identifies one client instance of a user.
type Installation struct {
	ID     int
	UserID int
	Name   string
}

// Valid reports whether the installation has been stored.
func (i Installation) Valid() bool {
	return i.ID > 0
}
