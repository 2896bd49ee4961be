// Package events provides the notification types and publishing
// infrastructure through which the controller reports changes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/tally/internal/model"
)

// EventType defines the type of notification.
type EventType string

const (
	// Task notifications

	// EventTaskAdded indicates a task was created.
	EventTaskAdded EventType = "task_added"
	// EventTaskModified indicates a task was changed.
	EventTaskModified EventType = "task_modified"
	// EventTaskDeleted indicates a task (and its events) was removed.
	EventTaskDeleted EventType = "task_deleted"
	// EventTasksLoaded carries the validated task list after connecting.
	EventTasksLoaded EventType = "tasks_loaded"

	// Event (time record) notifications

	// EventEventAdded indicates an event was created.
	EventEventAdded EventType = "event_added"
	// EventEventModified indicates an event was changed.
	EventEventModified EventType = "event_modified"
	// EventEventDeleted indicates an event was removed.
	EventEventDeleted EventType = "event_deleted"

	// EventAllReplaced indicates tasks and events were replaced wholesale.
	EventAllReplaced EventType = "all_tasks_and_events_changed"

	// EventBackendStatus indicates the backend connected or disconnected.
	EventBackendStatus EventType = "backend_status"
)

// Notification is a published change.
type Notification struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID int       `json:"subject_id,omitempty"`
	Data      any       `json:"data"`
	Time      time.Time `json:"time"`
}

// NewNotification creates a notification with a fresh id and the current timestamp.
func NewNotification(eventType EventType, subjectID int, data any) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Data:      data,
		Time:      time.Now(),
	}
}

// TaskChange is the payload of task notifications.
type TaskChange struct {
	Task     model.Task  `json:"task"`
	Previous *model.Task `json:"previous,omitempty"`
}

// EventChange is the payload of event notifications.
type EventChange struct {
	Event    model.Event  `json:"event"`
	Previous *model.Event `json:"previous,omitempty"`
}

// BackendState is the connection state of the storage backend.
type BackendState string

const (
	BackendConnected    BackendState = "connected"
	BackendDisconnected BackendState = "disconnected"
	BackendFailed       BackendState = "failed"
)

// BackendStatus is the payload of EventBackendStatus.
type BackendStatus struct {
	State   BackendState `json:"state"`
	Backend string       `json:"backend"`
	Error   string       `json:"error,omitempty"`
}
