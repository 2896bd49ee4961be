package events

import (
	"github.com/randalmurphal/tally/internal/model"
)

// PublishHelper wraps a Publisher with one named method per notification.
// All methods are safe to call when the underlying publisher is nil.
type PublishHelper struct {
	publisher Publisher
}

// NewPublishHelper creates a new PublishHelper wrapping p.
// If p is nil, all publish operations become no-ops.
func NewPublishHelper(p Publisher) *PublishHelper {
	return &PublishHelper{publisher: p}
}

// Publish sends a notification to the underlying publisher.
func (h *PublishHelper) Publish(n Notification) {
	if h == nil || h.publisher == nil {
		return
	}
	h.publisher.Publish(n)
}

// TaskAdded publishes EventTaskAdded.
func (h *PublishHelper) TaskAdded(t model.Task) {
	h.Publish(NewNotification(EventTaskAdded, t.ID, TaskChange{Task: t}))
}

// TaskModified publishes EventTaskModified with the previous state.
func (h *PublishHelper) TaskModified(t model.Task, previous model.Task) {
	h.Publish(NewNotification(EventTaskModified, t.ID, TaskChange{Task: t, Previous: &previous}))
}

// TaskDeleted publishes EventTaskDeleted.
func (h *PublishHelper) TaskDeleted(t model.Task) {
	h.Publish(NewNotification(EventTaskDeleted, t.ID, TaskChange{Task: t}))
}

// TasksLoaded publishes the validated task list.
func (h *PublishHelper) TasksLoaded(tasks model.TaskList) {
	h.Publish(NewNotification(EventTasksLoaded, 0, tasks))
}

// EventAdded publishes EventEventAdded.
func (h *PublishHelper) EventAdded(e model.Event) {
	h.Publish(NewNotification(EventEventAdded, e.ID, EventChange{Event: e}))
}

// EventModified publishes EventEventModified with the previous state.
func (h *PublishHelper) EventModified(e model.Event, previous model.Event) {
	h.Publish(NewNotification(EventEventModified, e.ID, EventChange{Event: e, Previous: &previous}))
}

// EventDeleted publishes EventEventDeleted.
func (h *PublishHelper) EventDeleted(e model.Event) {
	h.Publish(NewNotification(EventEventDeleted, e.ID, EventChange{Event: e}))
}

// AllReplaced publishes EventAllReplaced.
func (h *PublishHelper) AllReplaced(tasks model.TaskList, evts model.EventList) {
	h.Publish(NewNotification(EventAllReplaced, 0, struct {
		Tasks  model.TaskList  `json:"tasks"`
		Events model.EventList `json:"events"`
	}{tasks, evts}))
}

// BackendStatusChanged publishes EventBackendStatus.
func (h *PublishHelper) BackendStatusChanged(backend string, state BackendState, err error) {
	status := BackendStatus{State: state, Backend: backend}
	if err != nil {
		status.Error = err.Error()
	}
	h.Publish(NewNotification(EventBackendStatus, 0, status))
}
