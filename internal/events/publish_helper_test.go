package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tally/internal/model"
)

type mockPublisher struct {
	notifications []Notification
}

func (m *mockPublisher) Publish(n Notification) { m.notifications = append(m.notifications, n) }
func (m *mockPublisher) Subscribe(EventType) <-chan Notification {
	return make(chan Notification)
}
func (m *mockPublisher) Unsubscribe(EventType, <-chan Notification) {}
func (m *mockPublisher) Close()                                     {}

func TestPublishHelper_NilSafe(t *testing.T) {
	var nilHelper *PublishHelper
	nilHelper.TaskAdded(model.Task{ID: 1})

	h := NewPublishHelper(nil)
	assert.NotPanics(t, func() {
		h.TaskAdded(model.Task{ID: 1})
		h.TaskModified(model.Task{ID: 1}, model.Task{ID: 1})
		h.TaskDeleted(model.Task{ID: 1})
		h.TasksLoaded(nil)
		h.EventAdded(model.Event{ID: 1})
		h.EventModified(model.Event{ID: 1}, model.Event{ID: 1})
		h.EventDeleted(model.Event{ID: 1})
		h.AllReplaced(nil, nil)
		h.BackendStatusChanged("sqlite", BackendConnected, nil)
	})
}

func TestPublishHelper_TaskNotifications(t *testing.T) {
	mock := &mockPublisher{}
	h := NewPublishHelper(mock)

	before := model.Task{ID: 2, Name: "old", ParentID: 1}
	after := model.Task{ID: 2, Name: "new", ParentID: 1}

	h.TaskAdded(before)
	h.TaskModified(after, before)
	h.TaskDeleted(after)

	require.Len(t, mock.notifications, 3)
	assert.Equal(t, EventTaskAdded, mock.notifications[0].Type)
	assert.Equal(t, EventTaskModified, mock.notifications[1].Type)
	assert.Equal(t, EventTaskDeleted, mock.notifications[2].Type)

	change, ok := mock.notifications[1].Data.(TaskChange)
	require.True(t, ok)
	assert.Equal(t, "new", change.Task.Name)
	require.NotNil(t, change.Previous)
	assert.Equal(t, "old", change.Previous.Name)
	assert.Equal(t, 2, mock.notifications[1].SubjectID)
}

func TestPublishHelper_EventNotifications(t *testing.T) {
	mock := &mockPublisher{}
	h := NewPublishHelper(mock)

	e := model.Event{ID: 6, InstallationID: 1, TaskID: 3}
	h.EventAdded(e)
	h.EventDeleted(e)

	require.Len(t, mock.notifications, 2)
	assert.Equal(t, EventEventAdded, mock.notifications[0].Type)
	assert.Equal(t, 6, mock.notifications[0].SubjectID)
	change, ok := mock.notifications[1].Data.(EventChange)
	require.True(t, ok)
	assert.Nil(t, change.Previous)
	assert.Equal(t, 3, change.Event.TaskID)
}

func TestPublishHelper_BackendStatus(t *testing.T) {
	mock := &mockPublisher{}
	h := NewPublishHelper(mock)

	h.BackendStatusChanged("postgres", BackendFailed, errors.New("refused"))

	require.Len(t, mock.notifications, 1)
	status, ok := mock.notifications[0].Data.(BackendStatus)
	require.True(t, ok)
	assert.Equal(t, BackendFailed, status.State)
	assert.Equal(t, "postgres", status.Backend)
	assert.Equal(t, "refused", status.Error)
}
