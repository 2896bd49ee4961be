package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/command"
	"github.com/randalmurphal/tally/internal/config"
	"github.com/randalmurphal/tally/internal/controller"
	"github.com/randalmurphal/tally/internal/events"
)

// app is one connected CLI session.
type app struct {
	cfg     *config.Config
	ctrl    *controller.Controller
	emitter *emitter
	out     *printer
	logger  *slog.Logger
}

// openApp loads the config and connects to the configured backend.
// Structural failures leave nothing open.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.ResolveDSN()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	ctrl := controller.New(config.DefaultConfiguration(),
		controller.WithDSN(path),
		controller.WithLogger(logger),
		controller.WithPublisher(events.NewMemoryPublisher()),
	)
	if err := ctrl.InitializeBackEnd(cfg.BackendName()); err != nil {
		return nil, err
	}
	if err := ctrl.ConnectToBackend(cmd.Context()); err != nil {
		_ = ctrl.DisconnectFromBackend()
		return nil, err
	}

	out := newPrinter(cmd.OutOrStdout())
	return &app{
		cfg:     cfg,
		ctrl:    ctrl,
		emitter: newEmitter(out, newPrinter(cmd.ErrOrStderr())),
		out:     out,
		logger:  logger,
	}, nil
}

// Close disconnects the backend and closes the publisher.
func (a *app) Close() {
	if err := a.ctrl.DisconnectFromBackend(); err != nil {
		a.logger.Warn("disconnect", "error", err)
	}
	a.ctrl.Publisher().Close()
}

// Configuration returns the MetaData-persisted preferences.
func (a *app) Configuration() *config.Configuration {
	return a.ctrl.Configuration()
}

// do prepares and executes cmd. Failures have already been shown by the
// emitter and are returned as errReported.
func (a *app) do(ctx context.Context, cmd command.Command) error {
	if err := cmd.Prepare(); err != nil {
		return err
	}
	if !a.ctrl.ExecuteCommand(ctx, cmd) {
		return errReported
	}
	return nil
}

// withApp runs fn with a connected session.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

// emitter reports command outcomes on the terminal.
type emitter struct {
	out    *printer
	errOut *printer
}

func newEmitter(out, errOut *printer) *emitter {
	return &emitter{out: out, errOut: errOut}
}

// CommandCompleted finalizes cmd, which prints its message.
func (e *emitter) CommandCompleted(cmd command.Command) {
	cmd.Finalize()
}

// ShowMessage prints info to stdout and problems to stderr.
func (e *emitter) ShowMessage(level command.Level, title, text string) {
	switch level {
	case command.LevelInfo:
		if quiet {
			return
		}
		fmt.Fprintln(e.out.w, e.out.render(styleOK, text))
	case command.LevelCritical:
		fmt.Fprintf(e.errOut.w, "%s %s\n", e.errOut.render(styleCritical, title+":"), text)
	default:
		fmt.Fprintf(e.errOut.w, "%s %s\n", e.errOut.render(styleWarning, title+":"), text)
	}
}

var _ command.Emitter = (*emitter)(nil)
