// Package workspace opens everything one editing process needs: the
// single-instance lock, the configured store, the notifier chain and the
// session itself.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"storybuilder/internal/autosave"
	"storybuilder/internal/config"
	"storybuilder/internal/events"
	"storybuilder/internal/kvstore"
	"storybuilder/internal/logging"
	"storybuilder/internal/notifications"
	"storybuilder/internal/session"
	"storybuilder/internal/theme"
)

// ErrLocked means another process holds the workspace lock.
var ErrLocked = errors.New("story is already open in another storybuilder process")

// Options tunes how a workspace is assembled.
type Options struct {
	Logger *slog.Logger
	// Console receives terminal notifications when
	// notifications.console is enabled.
	Console io.Writer
	Hub     *events.Hub
	Clock   autosave.Clock
	// Notifier, when set, is added to the configured notifier chain.
	Notifier     notifications.Service
	FlushOnClose bool
	// Ephemeral keeps the story in memory regardless of storage.backend.
	Ephemeral bool
}

// Workspace is an open, locked story.
type Workspace struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    kvstore.Store
	hub      *events.Hub
	session  atomic.Pointer[session.Session]
	notifier notifications.Service
}

// Open locks the data directory and opens the story.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Workspace, error) {
	if cfg == nil {
		return nil, errors.New("workspace: config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, lockPath)
	}

	w := &Workspace{
		cfg:    cfg,
		logger: logging.NewComponentLogger(opts.Logger, "workspace"),
		lock:   lock,
		hub:    opts.Hub,
	}
	if w.hub == nil {
		w.hub = events.NewHub(0)
	}

	if opts.Ephemeral {
		w.store = kvstore.NewMemory(kvstore.Limits{MaxValueBytes: cfg.Storage.MaxValueBytes})
	} else {
		store, err := kvstore.Open(cfg)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
		}
		w.store = store
	}

	services := []notifications.Service{
		notifications.NewService(cfg),
		notifications.NewHubSink(w.hub),
		opts.Notifier,
	}
	if opts.Console != nil && cfg.Notifications.Console {
		services = append(services, notifications.NewConsole(opts.Console, w.currentTheme))
	}
	w.notifier = notifications.Multi(services...)

	defaultTheme := theme.OrDefault(cfg.Editor.DefaultTheme, theme.Light)
	sess, err := session.Open(ctx, session.Options{
		Store:            w.store,
		Notifier:         w.notifier,
		Hub:              w.hub,
		Logger:           opts.Logger,
		Clock:            opts.Clock,
		StoryKey:         cfg.Storage.StoryKey,
		ThemeKey:         cfg.Storage.ThemeKey,
		DefaultTheme:     defaultTheme,
		Placeholder:      cfg.Editor.Placeholder,
		AutosaveDelay:    cfg.AutosaveDelay(),
		AutosaveDisabled: !cfg.Autosave.Enabled,
		FlushOnClose:     opts.FlushOnClose,
	})
	if err != nil {
		_ = w.store.Close()
		_ = lock.Unlock()
		return nil, err
	}
	w.session.Store(sess)

	w.logger.Info("workspace opened",
		logging.String("backend", backendName(cfg, opts.Ephemeral)),
		logging.String("lock", lockPath),
		logging.Int("nodes", len(sess.Nodes())),
	)
	return w, nil
}

// Close closes the session, then the store, then releases the lock.
func (w *Workspace) Close(ctx context.Context) error {
	var errs []error
	if sess := w.session.Load(); sess != nil {
		if err := sess.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := w.lock.Unlock(); err != nil {
		logging.WarnWithContext(w.logger, "failed to release workspace lock", "lock_release_failed",
			logging.String("lock", w.lock.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no storybuilder process is running"),
		)
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	return errors.Join(errs...)
}

// Session returns the open session.
func (w *Workspace) Session() *session.Session { return w.session.Load() }

// Store returns the underlying key-value store.
func (w *Workspace) Store() kvstore.Store { return w.store }

// Hub returns the event hub fed by the session.
func (w *Workspace) Hub() *events.Hub { return w.hub }

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() *config.Config { return w.cfg }

// LockPath returns the lock file location.
func (w *Workspace) LockPath() string { return w.lock.Path() }

func (w *Workspace) currentTheme() theme.Name {
	fallback := theme.OrDefault(w.cfg.Editor.DefaultTheme, theme.Light)
	sess := w.session.Load()
	if sess == nil {
		return fallback
	}
	name, err := sess.Theme(context.Background())
	if err != nil {
		return fallback
	}
	return name
}

func backendName(cfg *config.Config, ephemeral bool) string {
	if ephemeral {
		return config.BackendMemory
	}
	return cfg.Storage.Backend
}
