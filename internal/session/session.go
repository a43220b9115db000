package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storybuilder/internal/autosave"
	"storybuilder/internal/events"
	"storybuilder/internal/kvstore"
	"storybuilder/internal/logging"
	"storybuilder/internal/notifications"
	"storybuilder/internal/story"
	"storybuilder/internal/theme"
)

// State is the save lifecycle position of a session.
type State string

const (
	StateClean  State = "clean"
	StateDirty  State = "dirty"
	StateSaving State = "saving"
)

// Status lines shown by the persistent save indicator.
const (
	StatusSaved   = "All changes saved"
	StatusUnsaved = "Unsaved changes"
	StatusSaving  = "Saving..."
	StatusFailed  = "Save failed"
)

// User-facing notification messages.
const (
	MessageSaved       = "Story saved successfully"
	MessageSaveFailed  = "Error saving story"
	MessageLoadFailed  = "Error loading saved story"
	MessageExported    = "Story exported successfully"
	MessageExportError = "Error exporting story"
)

const (
	DefaultStoryKey    = "story"
	DefaultThemeKey    = "theme"
	DefaultPlaceholder = "Start typing your story..."
)

// Options configures a Session.
type Options struct {
	Store    kvstore.Store
	Notifier notifications.Service
	Hub      *events.Hub
	Logger   *slog.Logger
	Clock    autosave.Clock

	StoryKey     string
	ThemeKey     string
	DefaultTheme theme.Name
	// Placeholder is the hint shown inside nodes with no text.
	Placeholder string

	AutosaveDelay    time.Duration
	AutosaveDisabled bool
	// FlushOnClose saves a dirty session one last time during Close.
	FlushOnClose bool

	// NewID overrides node ID generation.
	NewID func() string
}

// Session is one open story.
type Session struct {
	mu sync.Mutex

	store    kvstore.Store
	notifier notifications.Service
	hub      *events.Hub
	logger   *slog.Logger
	clock    autosave.Clock

	storyKey     string
	themeKey     string
	defaultTheme theme.Name
	placeholder  string
	autosave     bool
	flushOnClose bool

	scheduler *autosave.Scheduler
	story     *story.Story
	dirty     bool
	state     State
	status    string
	focus     string
	lastSaved time.Time
	lastLoad  LoadResult
	closed    bool
}

// Open builds a session and loads the persisted story. Load problems are
// reported through the notifier and the returned session starts empty; only
// a missing store is an error.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = autosave.SystemClock{}
	}
	if opts.StoryKey == "" {
		opts.StoryKey = DefaultStoryKey
	}
	if opts.ThemeKey == "" {
		opts.ThemeKey = DefaultThemeKey
	}
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = theme.Light
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}

	s := &Session{
		store:        opts.Store,
		notifier:     opts.Notifier,
		hub:          opts.Hub,
		logger:       logging.NewComponentLogger(opts.Logger, "session"),
		clock:        opts.Clock,
		storyKey:     opts.StoryKey,
		themeKey:     opts.ThemeKey,
		defaultTheme: opts.DefaultTheme,
		placeholder:  opts.Placeholder,
		autosave:     !opts.AutosaveDisabled,
		flushOnClose: opts.FlushOnClose,
		story:        story.NewWithIDs(opts.NewID),
		state:        StateClean,
		status:       StatusSaved,
	}
	s.scheduler = autosave.New(s.runAutosave, autosave.Options{
		Delay:  opts.AutosaveDelay,
		Clock:  opts.Clock,
		Logger: logging.NewComponentLogger(opts.Logger, "autosave"),
	})

	s.Load(ctx)
	return s, nil
}

// Close stops the autosave timer. With FlushOnClose set, a dirty session is
// saved first. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.scheduler.Stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	var (
		result  SaveResult
		pending []notifications.Notification
	)
	if s.flushOnClose && s.dirty {
		s.logger.Info("flushing unsaved changes before close", logging.String(logging.FieldEventType, "session_flush"))
		result, pending = s.saveLocked(ctx, false)
	}
	s.closed = true
	s.mu.Unlock()

	s.deliver(ctx, pending)
	if result.Err != nil {
		return wrap("close", result.Err)
	}
	return nil
}

// Snapshot is a consistent view of session state.
type Snapshot struct {
	Nodes  []story.Node `json:"nodes"`
	State  State        `json:"state"`
	Dirty  bool         `json:"dirty"`
	Status string       `json:"status"`
	Focus  string       `json:"focus,omitempty"`
	// Placeholder is the hint for nodes with no text.
	Placeholder string    `json:"placeholder"`
	LastSaved   time.Time `json:"last_saved,omitempty"`
	Pending     bool      `json:"autosave_pending"`
}

// Snapshot returns the current state in one read.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Nodes:       s.story.Nodes(),
		State:       s.state,
		Dirty:       s.dirty,
		Status:      s.status,
		Focus:       s.focus,
		Placeholder: s.placeholder,
		LastSaved:   s.lastSaved,
		Pending:     s.scheduler.Pending(),
	}
}

// Nodes returns the nodes in display order.
func (s *Session) Nodes() []story.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.Nodes()
}

// Node returns one node by ID.
func (s *Session) Node(id string) (story.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.Node(id)
}

// State reports the save state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether there are unsaved edits.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Status returns the persistent status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Focused returns the ID of the focused node, or "".
func (s *Session) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Placeholder returns the hint shown for nodes with no text.
func (s *Session) Placeholder() string { return s.placeholder }

// AutosavePending reports whether an autosave is scheduled.
func (s *Session) AutosavePending() bool {
	return s.scheduler.Pending()
}

// Preview renders the sanitized preview markup.
func (s *Session) Preview() string {
	s.mu.Lock()
	contents := s.story.Contents()
	s.mu.Unlock()
	return story.Preview(contents)
}

// PlainText renders the story as export text.
func (s *Session) PlainText() string {
	s.mu.Lock()
	contents := s.story.Contents()
	s.mu.Unlock()
	return story.JoinPlainText(contents)
}

func (s *Session) setStatusLocked(state State, status string) {
	s.state = state
	s.status = status
	s.hub.Publish(events.Event{
		Type:   events.TypeStatus,
		State:  string(state),
		Status: status,
		Dirty:  s.dirty,
	})
}

func (s *Session) deliver(ctx context.Context, pending []notifications.Notification) {
	for _, n := range pending {
		if err := s.notifier.Notify(ctx, n); err != nil {
			logging.WarnWithContext(s.logger, "notification delivery failed", "notification_failed",
				logging.String("message", n.Message),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notification settings"),
				logging.String(logging.FieldImpact, "user was not shown the message"),
			)
		}
	}
}
