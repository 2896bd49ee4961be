package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/db"
	"github.com/randalmurphal/tally/internal/db/driver"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/model"
)

// DatabaseBackend stores everything in a SQL database through internal/db.
// All operations are protected by a mutex for concurrent access safety.
type DatabaseBackend struct {
	name    string
	dialect driver.Dialect
	dsn     string
	cfg     *config.Configuration
	logger  *slog.Logger

	mu sync.RWMutex
	db *db.DB
}

var _ Backend = (*DatabaseBackend)(nil)

func newDatabaseBackend(name string, dialect driver.Dialect, dsn string, opts Options) *DatabaseBackend {
	return &DatabaseBackend{
		name:    name,
		dialect: dialect,
		dsn:     dsn,
		cfg:     opts.Configuration,
		logger:  opts.Logger.With("backend", name),
	}
}

// Name returns the backend name.
func (b *DatabaseBackend) Name() string {
	return b.name
}

// DB returns the underlying database, or nil when not connected.
// Direct database access bypasses the mutex protection.
func (b *DatabaseBackend) DB() *db.DB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db
}

// Configuration returns the configuration shared with the controller.
func (b *DatabaseBackend) Configuration() *config.Configuration {
	return b.cfg
}

// Connect opens the database. Connecting twice is a no-op.
func (b *DatabaseBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	d, err := db.OpenWithDialect(b.dsn, b.dialect, db.WithConfiguration(b.cfg), db.WithLogger(b.logger))
	if err != nil {
		return fmt.Errorf("connect %s backend: %w", b.name, err)
	}
	b.db = d
	b.logger.Debug("connected", "dsn", redactDSN(b.dialect, b.dsn))
	return nil
}

// Connected reports whether Connect succeeded and Close was not called.
func (b *DatabaseBackend) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.db != nil
}

// Close releases the database. Closing an unconnected backend is a no-op.
func (b *DatabaseBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// conn returns the open database or a not-connected error. Callers hold b.mu.
func (b *DatabaseBackend) conn() (*db.DB, error) {
	if b.db == nil {
		return nil, tallyerrors.ErrNotConnected()
	}
	return b.db, nil
}

// VerifyDatabase checks and migrates the schema.
func (b *DatabaseBackend) VerifyDatabase(ctx context.Context) (Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return 0, err
	}
	return d.VerifyDatabase(ctx)
}

// CreateTables creates the schema in an empty database.
func (b *DatabaseBackend) CreateTables(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.CreateTables(ctx)
}

// GetTasks returns all tasks.
func (b *DatabaseBackend) GetTasks(ctx context.Context) (model.TaskList, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return nil, err
	}
	return d.GetTasks(ctx)
}

// GetTask returns one task.
func (b *DatabaseBackend) GetTask(ctx context.Context, id int) (model.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return model.Task{}, err
	}
	return d.GetTask(ctx, id)
}

// AddTask stores a new task.
func (b *DatabaseBackend) AddTask(ctx context.Context, t model.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.AddTask(ctx, t)
}

// ModifyTask updates a task.
func (b *DatabaseBackend) ModifyTask(ctx context.Context, t model.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.ModifyTask(ctx, t)
}

// DeleteTask removes a task and its events.
func (b *DatabaseBackend) DeleteTask(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.DeleteTask(ctx, id)
}

// GetEvents returns all events.
func (b *DatabaseBackend) GetEvents(ctx context.Context) (model.EventList, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return nil, err
	}
	return d.GetEvents(ctx)
}

// GetEventsForTask returns the events of one task.
func (b *DatabaseBackend) GetEventsForTask(ctx context.Context, taskID int) (model.EventList, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return nil, err
	}
	return d.GetEventsForTask(ctx, taskID)
}

// GetEvent returns one event.
func (b *DatabaseBackend) GetEvent(ctx context.Context, id int) (model.Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return model.Event{}, err
	}
	return d.GetEvent(ctx, id)
}

// MakeEvent stores a new event and returns it with its id.
func (b *DatabaseBackend) MakeEvent(ctx context.Context, e model.Event) (model.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return model.Event{}, err
	}
	return d.MakeEvent(ctx, e)
}

// ModifyEvent updates an event.
func (b *DatabaseBackend) ModifyEvent(ctx context.Context, e model.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.ModifyEvent(ctx, e)
}

// DeleteEvent removes an event.
func (b *DatabaseBackend) DeleteEvent(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.DeleteEvent(ctx, id)
}

// SetAllTasksAndEvents replaces all tasks and events.
func (b *DatabaseBackend) SetAllTasksAndEvents(ctx context.Context, tasks model.TaskList, events model.EventList) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err.Error()
	}
	return d.SetAllTasksAndEvents(ctx, tasks, events)
}

// MakeUser creates a user.
func (b *DatabaseBackend) MakeUser(ctx context.Context, name string) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return model.User{}, err
	}
	return d.MakeUser(ctx, name)
}

// GetUser returns a user.
func (b *DatabaseBackend) GetUser(ctx context.Context, id int) (model.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return model.User{}, err
	}
	return d.GetUser(ctx, id)
}

// ModifyUser renames a user.
func (b *DatabaseBackend) ModifyUser(ctx context.Context, u model.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.ModifyUser(ctx, u)
}

// MakeInstallation creates an installation.
func (b *DatabaseBackend) MakeInstallation(ctx context.Context, name string, userID int) (model.Installation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return model.Installation{}, err
	}
	return d.MakeInstallation(ctx, name, userID)
}

// GetInstallation returns an installation.
func (b *DatabaseBackend) GetInstallation(ctx context.Context, id int) (model.Installation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return model.Installation{}, err
	}
	return d.GetInstallation(ctx, id)
}

// GetMetaData reads a metadata value.
func (b *DatabaseBackend) GetMetaData(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, err := b.conn()
	if err != nil {
		return "", false, err
	}
	return d.GetMetaData(ctx, key)
}

// SetMetaData writes a metadata value.
func (b *DatabaseBackend) SetMetaData(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.conn()
	if err != nil {
		return err
	}
	return d.SetMetaData(ctx, key, value)
}

// redactDSN hides credentials in postgres connection strings.
func redactDSN(dialect driver.Dialect, dsn string) string {
	if dialect == driver.DialectPostgres {
		return "<redacted>"
	}
	return dsn
}
