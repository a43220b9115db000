package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"storybuilder/internal/api"
	"storybuilder/internal/autosave"
	"storybuilder/internal/config"
	"storybuilder/internal/keymap"
	"storybuilder/internal/logging"
	"storybuilder/internal/preflight"
	"storybuilder/internal/workspace"
)

// Options tunes daemon construction.
type Options struct {
	// Console receives terminal notifications.
	Console io.Writer
	Clock   autosave.Clock
	// Ephemeral keeps the story in memory.
	Ephemeral bool
}

// Daemon serves one workspace over HTTP and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	ws         *workspace.Workspace
	dispatcher *keymap.Dispatcher
	api        *apiServer
	started    time.Time
	ephemeral  bool

	running atomic.Bool
	closed  atomic.Bool
}

// New opens the workspace and prepares the API server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ws, err := workspace.Open(ctx, cfg, workspace.Options{
		Logger:       logger,
		Console:      opts.Console,
		Clock:        opts.Clock,
		FlushOnClose: true,
		Ephemeral:    opts.Ephemeral,
	})
	if err != nil {
		return nil, err
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		ws:         ws,
		dispatcher: keymap.NewDispatcher(ws.Session()),
		ephemeral:  opts.Ephemeral,
	}
	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api-server"))
	return d, nil
}

// Start runs preflight checks and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	for _, failed := range preflight.Failed(d.checks(ctx)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or service and restart"),
			logging.String(logging.FieldImpact, "saves or notifications may fail"),
		)
	}
	if err := d.api.start(ctx); err != nil {
		return err
	}
	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("storybuilder daemon started",
		logging.String("lock", d.ws.LockPath()),
		logging.String("address", d.api.addr()),
	)
	return nil
}

// Run starts the daemon, blocks until ctx ends and then shuts down.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		_ = d.Close(context.Background())
		return err
	}
	<-ctx.Done()
	return d.Close(context.Background())
}

// Close stops the API server and closes the workspace, saving unsaved edits.
func (d *Daemon) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.api.stop()
	d.running.Store(false)
	if err := d.ws.Close(ctx); err != nil {
		return fmt.Errorf("close workspace: %w", err)
	}
	d.logger.Info("storybuilder daemon stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (d *Daemon) Addr() string { return d.api.addr() }

// Handler exposes the API routes.
func (d *Daemon) Handler() http.Handler { return d.api.handler }

// Workspace returns the open workspace.
func (d *Daemon) Workspace() *workspace.Workspace { return d.ws }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	sess := d.ws.Session()
	name, _ := sess.Theme(ctx)
	backend := d.cfg.Storage.Backend
	if d.ephemeral {
		backend = config.BackendMemory
	}
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Backend:      backend,
		LockFilePath: d.ws.LockPath(),
		Story:        api.FromSnapshot(sess.Snapshot(), string(name)),
		Checks:       api.FromChecks(d.checks(ctx)),
	}
	if !d.started.IsZero() {
		status.Started = d.started.UTC().Format(time.RFC3339)
	}
	return status
}

func (d *Daemon) checks(ctx context.Context) []preflight.Result {
	return preflight.RunAll(ctx, d.cfg, d.ws.Store())
}
