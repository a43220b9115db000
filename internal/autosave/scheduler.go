// Package autosave debounces edits into deferred save requests.
//
// Each edit restarts a single countdown. Only when the configured delay
// passes with no further edits does the scheduler invoke its fire callback.
package autosave

import (
	"log/slog"
	"sync"
	"time"

	"storybuilder/internal/logging"
)

// DefaultDelay is the quiet period between the last edit and the autosave.
const DefaultDelay = 3000 * time.Millisecond

// Options configures a Scheduler.
type Options struct {
	Delay  time.Duration
	Clock  Clock
	Logger *slog.Logger
}

// Scheduler owns at most one pending autosave.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	clock   Clock
	logger  *slog.Logger
	fire    func()
	timer   Timer
	gen     uint64
	pending bool
	stopped bool
}

// New builds a scheduler that calls fire once the delay elapses after the
// most recent NotifyEdit.
func New(fire func(), opts Options) *Scheduler {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Scheduler{
		delay:  opts.Delay,
		clock:  opts.Clock,
		logger: opts.Logger,
		fire:   fire,
	}
}

// Delay returns the debounce interval.
func (s *Scheduler) Delay() time.Duration { return s.delay }

// NotifyEdit replaces any pending autosave with a fresh one.
func (s *Scheduler) NotifyEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopTimerLocked()
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = s.clock.AfterFunc(s.delay, func() { s.run(gen) })
	s.logger.Debug("autosave scheduled", logging.Duration("delay", s.delay))
}

// Cancel drops the pending autosave, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Pending reports whether an autosave is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Stop cancels the pending autosave and ignores later edits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}

func (s *Scheduler) run(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.fire()
}

func (s *Scheduler) cancelLocked() {
	if s.pending {
		s.logger.Debug("autosave cancelled")
	}
	s.stopTimerLocked()
	s.gen++
	s.pending = false
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
