// Package controller owns the live storage backend. It runs commands
// against it, publishes a notification for every change, and keeps the
// MetaData-persisted Configuration in sync.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/tally/internal/command"
	"github.com/randalmurphal/tally/internal/config"
	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/events"
	"github.com/randalmurphal/tally/internal/model"
	"github.com/randalmurphal/tally/internal/storage"
)

// Controller implements command.Facade and command.Executor over a
// storage backend.
type Controller struct {
	cfg       *config.Configuration
	factory   storage.Factory
	dsn       string
	publisher events.Publisher
	publish   *events.PublishHelper
	logger    *slog.Logger

	mu      sync.RWMutex
	backend storage.Backend
}

var (
	_ command.Facade   = (*Controller)(nil)
	_ command.Executor = (*Controller)(nil)
)

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sets the notification publisher.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithBackendFactory replaces storage.NewBackend.
func WithBackendFactory(f storage.Factory) Option {
	return func(c *Controller) {
		c.factory = f
	}
}

// WithDSN sets the file path or connection string handed to the backend.
func WithDSN(dsn string) Option {
	return func(c *Controller) {
		c.dsn = dsn
	}
}

// New creates a controller without a backend. cfg is shared with the
// backend created by InitializeBackEnd; nil means defaults.
func New(cfg *config.Configuration, opts ...Option) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfiguration()
	}
	c := &Controller{
		cfg:     cfg,
		factory: storage.NewBackend,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.publisher == nil {
		c.publisher = events.NewNopPublisher()
	}
	c.publish = events.NewPublishHelper(c.publisher)
	return c
}

// Configuration returns the shared configuration.
func (c *Controller) Configuration() *config.Configuration { return c.cfg }

// Publisher returns the notification publisher.
func (c *Controller) Publisher() events.Publisher { return c.publisher }

// Backend returns the current backend, or nil.
func (c *Controller) Backend() storage.Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// InitializeBackEnd creates the named backend, replacing (and closing)
// any previous one. The backend is not connected yet.
func (c *Controller) InitializeBackEnd(name string) error {
	b, err := c.factory(name, storage.Options{
		DSN:           c.dsn,
		Configuration: c.cfg,
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.backend
	c.backend = b
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn("close previous backend", "backend", old.Name(), "error", err)
		}
	}
	c.logger.Debug("backend initialized", "backend", name)
	return nil
}

// ConnectToBackend connects the backend and brings the database to a
// usable state: schema verified or created, user and installation present,
// task tree validated. Structural failures disconnect again and are
// returned; callers must treat them as fatal.
func (c *Controller) ConnectToBackend(ctx context.Context) error {
	b := c.Backend()
	if b == nil {
		return tallyerrors.ErrNotConnected()
	}

	if err := c.connect(ctx, b); err != nil {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("close after failed connect", "error", cerr)
		}
		c.publish.BackendStatusChanged(b.Name(), events.BackendFailed, err)
		return err
	}
	return nil
}

func (c *Controller) connect(ctx context.Context, b storage.Backend) error {
	if err := b.Connect(ctx); err != nil {
		return err
	}

	status, err := b.VerifyDatabase(ctx)
	if err != nil {
		return err
	}
	if status == storage.StatusNeedsCreation {
		if err := b.CreateTables(ctx); err != nil {
			return err
		}
	}
	c.logger.Debug("database verified", "status", status.String())

	if err := c.ProvideMetaData(ctx); err != nil {
		return err
	}
	if err := c.ensureIdentity(ctx, b); err != nil {
		return err
	}

	tasks, err := b.GetTasks(ctx)
	if err != nil {
		return err
	}
	unique, tree := model.ValidateTree(tasks)
	switch {
	case !unique:
		return tallyerrors.ErrDuplicateTaskIDs()
	case !tree:
		return tallyerrors.ErrInvalidTaskTree()
	}

	c.publish.TasksLoaded(tasks)
	c.publish.BackendStatusChanged(b.Name(), events.BackendConnected, nil)
	c.logger.Info("connected to backend", "backend", b.Name(), "tasks", len(tasks),
		"user", c.cfg.UserID, "installation", c.cfg.InstallationID)
	return nil
}

// ensureIdentity creates the configured user and installation when the
// configuration does not name them yet.
func (c *Controller) ensureIdentity(ctx context.Context, b storage.Backend) error {
	changed := false

	if c.cfg.UserID == 0 {
		u, err := b.MakeUser(ctx, c.cfg.UserName)
		if err != nil {
			return err
		}
		c.cfg.UserID = u.ID
		changed = true
		c.logger.Info("created user", "id", u.ID, "name", u.Name)
	} else if _, err := b.GetUser(ctx, c.cfg.UserID); err != nil {
		return err
	}

	if c.cfg.InstallationID == 0 {
		inst, err := b.MakeInstallation(ctx, c.cfg.InstallationName, c.cfg.UserID)
		if err != nil {
			return err
		}
		c.cfg.InstallationID = inst.ID
		changed = true
		c.logger.Info("created installation", "id", inst.ID, "name", inst.Name)
	} else if _, err := b.GetInstallation(ctx, c.cfg.InstallationID); err != nil {
		return err
	}

	if changed {
		return c.PersistMetaData(ctx)
	}
	return nil
}

// DisconnectFromBackend closes and releases the backend.
func (c *Controller) DisconnectFromBackend() error {
	c.mu.Lock()
	b := c.backend
	c.backend = nil
	c.mu.Unlock()

	if b == nil {
		return nil
	}
	err := b.Close()
	c.publish.BackendStatusChanged(b.Name(), events.BackendDisconnected, err)
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", b.Name(), err)
	}
	return nil
}

// Connected reports whether a connected backend is present.
func (c *Controller) Connected() bool {
	b := c.Backend()
	return b != nil && b.Connected()
}

// ExecuteCommand executes cmd and notifies its emitter.
func (c *Controller) ExecuteCommand(ctx context.Context, cmd command.Command) bool {
	ok := cmd.Execute(ctx, c)
	c.logResult("execute", cmd, ok)
	cmd.Emitter().CommandCompleted(cmd)
	return ok
}

// RollbackCommand rolls cmd back and notifies its emitter.
func (c *Controller) RollbackCommand(ctx context.Context, cmd command.Command) bool {
	ok := cmd.Rollback(ctx, c)
	c.logResult("rollback", cmd, ok)
	cmd.Emitter().CommandCompleted(cmd)
	return ok
}

func (c *Controller) logResult(op string, cmd command.Command, ok bool) {
	if ok {
		c.logger.Debug("command "+op, "command", cmd.Name(), "state", cmd.State())
		return
	}
	c.logger.Info("command "+op+" failed", "command", cmd.Name(), "error", cmd.Err())
}

func (c *Controller) connected() (storage.Backend, error) {
	b := c.Backend()
	if b == nil || !b.Connected() {
		return nil, tallyerrors.ErrNotConnected()
	}
	return b, nil
}
