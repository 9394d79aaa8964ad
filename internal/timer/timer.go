// Package timer runs the countdown for the session the sequence points at.
//
// The engine has three states. Idle holds no countdown, Active counts down
// (work or break, as reported by the sequence) and Paused freezes the
// remaining time. Events that the current state does not accept are
// rejected without side effects.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/pomotick/internal/sequence"
)

// State of the engine.
type State uint8

const (
	Idle State = iota
	Active
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Active:
		return "ACTIVE"
	case Paused:
		return "PAUSED"
	}
	return "UNKNOWN"
}

// Event drives the engine. Timeout is raised internally by Update.
type Event uint8

const (
	EventStart Event = iota
	EventPause
	EventResume
	EventStop
	EventSkip
	eventTimeout
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "START"
	case EventPause:
		return "PAUSE"
	case EventResume:
		return "RESUME"
	case EventStop:
		return "STOP"
	case EventSkip:
		return "SKIP"
	case eventTimeout:
		return "TIMEOUT"
	}
	return "UNKNOWN"
}

// WarningLead is how long before the end of a session OnWarning fires.
const WarningLead = 30 * time.Second

// Callbacks are invoked after the engine lock is released, so they may call
// back into the engine. Any of them may be nil.
type Callbacks struct {
	OnStateChange func(from, to State)
	// OnTimeout receives the session that just ran out, with the minutes it
	// actually ran. The sequence has already advanced past it.
	OnTimeout func(completed sequence.Session)
	// OnWarning fires once per started session when WarningLead remains.
	OnWarning func(current sequence.Session)
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	State     State
	Remaining time.Duration
	Total     time.Duration
	Session   sequence.Session
	Next      sequence.Session
	Sequence  uint32 // packed sequence word
}

// Elapsed is the time already spent in the session.
func (s Snapshot) Elapsed() time.Duration { return s.Total - s.Remaining }

// Engine is the session state machine.
type Engine struct {
	mu        sync.Mutex
	seq       *sequence.Sequence
	state     State
	remaining time.Duration
	total     time.Duration
	warned    bool

	// running is the session captured at Start; the sequence may be
	// reconfigured underneath it
	running sequence.Session

	callbacks Callbacks
	logger    *slog.Logger
}

// New returns an idle engine over seq.
func New(seq *sequence.Sequence, callbacks Callbacks, logger *slog.Logger) *Engine {
	if seq == nil {
		seq = sequence.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		seq:       seq,
		callbacks: callbacks,
		logger:    logger.With("component", "timer"),
	}
}

// accepts is the transition table.
func accepts(s State, ev Event) bool {
	switch s {
	case Idle:
		return ev == EventStart
	case Active:
		return ev == EventPause || ev == EventStop || ev == eventTimeout || ev == EventSkip
	case Paused:
		return ev == EventResume || ev == EventStop || ev == EventSkip
	}
	return false
}

// HandleEvent applies ev and reports whether it was accepted.
func (e *Engine) HandleEvent(ev Event) bool {
	e.mu.Lock()
	ok, notify := e.handleLocked(ev)
	e.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
	return ok
}

func (e *Engine) handleLocked(ev Event) (bool, []func()) {
	if !accepts(e.state, ev) {
		e.logger.Warn("rejected event", "event", ev.String(), "state", e.state.String())
		return false, nil
	}

	var notify []func()
	switch ev {
	case EventStart:
		e.running = e.seq.Current()
		e.total = e.running.Duration()
		e.remaining = e.total
		e.warned = false
		notify = e.transitionLocked(Active, notify)
	case EventPause:
		notify = e.transitionLocked(Paused, notify)
	case EventResume:
		notify = e.transitionLocked(Active, notify)
	case EventStop:
		e.clearLocked()
		notify = e.transitionLocked(Idle, notify)
	case EventSkip:
		e.seq.Advance()
		e.clearLocked()
		notify = e.transitionLocked(Idle, notify)
	case eventTimeout:
		completed := e.running
		completed.Minutes = uint16(e.total / time.Minute)
		e.seq.Advance()
		e.clearLocked()
		notify = e.transitionLocked(Idle, notify)
		if cb := e.callbacks.OnTimeout; cb != nil {
			notify = append(notify, func() { cb(completed) })
		}
	}
	return true, notify
}

func (e *Engine) clearLocked() {
	e.remaining = 0
	e.total = 0
	e.running = sequence.Session{}
}

// currentLocked is the running session, or the one Start would begin.
func (e *Engine) currentLocked() sequence.Session {
	if e.state == Idle {
		return e.seq.Current()
	}
	return e.running
}

func (e *Engine) transitionLocked(to State, notify []func()) []func() {
	from := e.state
	e.state = to
	e.logger.Debug("transition", "from", from.String(), "to", to.String())
	if cb := e.callbacks.OnStateChange; cb != nil {
		notify = append(notify, func() { cb(from, to) })
	}
	return notify
}

// Update counts down by delta while Active and raises the timeout when the
// remaining time reaches zero.
func (e *Engine) Update(delta time.Duration) {
	e.mu.Lock()
	if e.state != Active || delta <= 0 || e.remaining == 0 {
		e.mu.Unlock()
		return
	}

	var notify []func()
	if delta >= e.remaining {
		e.remaining = 0
		_, notify = e.handleLocked(eventTimeout)
	} else {
		e.remaining -= delta
		if !e.warned && e.remaining <= WarningLead {
			e.warned = true
			if cb := e.callbacks.OnWarning; cb != nil {
				current := e.running
				notify = append(notify, func() { cb(current) })
			}
		}
	}
	e.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// Reset forces the engine back to Idle without advancing the sequence.
func (e *Engine) Reset() {
	e.mu.Lock()
	var notify []func()
	e.clearLocked()
	if e.state != Idle {
		notify = e.transitionLocked(Idle, notify)
	}
	e.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

func (e *Engine) Total() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// ProgressPercent is the elapsed share of the session, 0 when idle.
func (e *Engine) ProgressPercent() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.total == 0 {
		return 0
	}
	return uint8((e.total - e.remaining) * 100 / e.total)
}

// RemainingTime splits the remaining time into whole minutes and seconds.
func (e *Engine) RemainingTime() (minutes, seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := int(e.remaining / time.Second)
	return total / 60, total % 60
}

// Snapshot returns the engine and sequence state in one read. While a
// session runs, Session is the one that was started.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:     e.state,
		Remaining: e.remaining,
		Total:     e.total,
		Session:   e.currentLocked(),
		Next:      e.seq.Next(),
		Sequence:  e.seq.Encode(),
	}
}

// WithSequence runs fn with exclusive access to the sequence. Duration and
// mode changes made here apply from the next Start; a running session keeps
// its total.
func (e *Engine) WithSequence(fn func(*sequence.Sequence)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.seq)
}
