// Package storage defines the storage engine interface consumed by the
// controller and selects an implementation by backend name.
package storage

import (
	"context"

	"github.com/randalmurphal/tally/internal/db"
	"github.com/randalmurphal/tally/internal/model"
)

// Status is the outcome of Backend.VerifyDatabase.
type Status = db.Status

const (
	StatusNeedsCreation = db.StatusNeedsCreation
	StatusCurrent       = db.StatusCurrent
	StatusMigrated      = db.StatusMigrated
)

// Backend defines the storage operations for tally.
// All implementations must be safe for concurrent access.
type Backend interface {
	// Name returns the backend name ("sqlite", "postgres", "memory").
	Name() string

	// Lifecycle
	Connect(ctx context.Context) error
	Connected() bool
	Close() error

	// Schema
	VerifyDatabase(ctx context.Context) (Status, error)
	CreateTables(ctx context.Context) error

	// Task operations
	GetTasks(ctx context.Context) (model.TaskList, error)
	GetTask(ctx context.Context, id int) (model.Task, error)
	AddTask(ctx context.Context, t model.Task) error
	ModifyTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id int) error

	// Event operations
	GetEvents(ctx context.Context) (model.EventList, error)
	GetEventsForTask(ctx context.Context, taskID int) (model.EventList, error)
	GetEvent(ctx context.Context, id int) (model.Event, error)
	MakeEvent(ctx context.Context, e model.Event) (model.Event, error)
	ModifyEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id int) error

	// SetAllTasksAndEvents replaces everything; "" means success,
	// anything else is a diagnostic for the user.
	SetAllTasksAndEvents(ctx context.Context, tasks model.TaskList, events model.EventList) string

	// Users and installations
	MakeUser(ctx context.Context, name string) (model.User, error)
	GetUser(ctx context.Context, id int) (model.User, error)
	ModifyUser(ctx context.Context, u model.User) error
	MakeInstallation(ctx context.Context, name string, userID int) (model.Installation, error)
	GetInstallation(ctx context.Context, id int) (model.Installation, error)

	// Metadata
	GetMetaData(ctx context.Context, key string) (string, bool, error)
	SetMetaData(ctx context.Context, key, value string) error
}
