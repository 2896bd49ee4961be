// Package model defines the domain types tracked by tally.
package model

import (
	"sort"
	"strings"
	"time"
)

// RootID is the parent id of top level tasks.
const RootID = 0

// Task is a named, hierarchically parented unit of trackable work.
// Ids are chosen by the caller.
type Task struct {
	ID         int
	Name       string
	ParentID   int
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Trackable  bool
	Subscribed bool
	Comment    string
}

// Valid reports whether the task carries a usable identity.
func (t Task) Valid() bool {
	return t.ID > 0
}

// IsCurrentlyValid reports whether now falls inside the validity window.
// Open ends of the window are unbounded.
func (t Task) IsCurrentlyValid(now time.Time) bool {
	if t.ValidFrom != nil && now.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidUntil != nil && now.After(*t.ValidUntil) {
		return false
	}
	return true
}

// Equal compares all fields, including the validity window.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.Name == o.Name &&
		t.ParentID == o.ParentID &&
		timePtrEqual(t.ValidFrom, o.ValidFrom) &&
		timePtrEqual(t.ValidUntil, o.ValidUntil) &&
		t.Trackable == o.Trackable &&
		t.Subscribed == o.Subscribed &&
		t.Comment == o.Comment
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// TaskList is a flat list of tasks.
type TaskList []Task

// Find returns the task with id.
func (l TaskList) Find(id int) (Task, bool) {
	for _, t := range l {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Children returns the tasks whose parent is id, ordered by id.
func (l TaskList) Children(id int) TaskList {
	var out TaskList
	for _, t := range l {
		if t.ParentID == id && t.ID != id {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the task ids in list order.
func (l TaskList) IDs() []int {
	ids := make([]int, len(l))
	for i, t := range l {
		ids[i] = t.ID
	}
	return ids
}

// Path returns the slash separated names from the root down to id.
// Unknown ids and broken parent chains yield the part that resolves.
func (l TaskList) Path(id int) string {
	byID := make(map[int]Task, len(l))
	for _, t := range l {
		byID[t.ID] = t
	}
	var parts []string
	seen := make(map[int]bool)
	for cur := id; cur != RootID && !seen[cur]; {
		t, ok := byID[cur]
		if !ok {
			break
		}
		seen[cur] = true
		parts = append(parts, t.Name)
		cur = t.ParentID
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
