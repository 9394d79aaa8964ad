// Package sequence maps a Pomodoro mode and a cycle position onto the
// session that should run there. It has no I/O and no clock.
package sequence

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the shape of the work/break cycle.
type Mode uint8

const (
	Classic Mode = iota
	Study
	Custom
)

var modeNames = map[Mode]string{
	Classic: "classic",
	Study:   "study",
	Custom:  "custom",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the lowercase names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return m, nil
		}
	}
	return Classic, fmt.Errorf("unknown mode %q", s)
}

// SessionType is the kind of interval occupying a cycle position.
type SessionType uint8

const (
	Work SessionType = iota
	ShortBreak
	LongBreak
)

func (t SessionType) String() string {
	switch t {
	case Work:
		return "WORK"
	case ShortBreak:
		return "SHORT_BREAK"
	case LongBreak:
		return "LONG_BREAK"
	}
	return "UNKNOWN"
}

// IsBreak reports whether t is either kind of break.
func (t SessionType) IsBreak() bool {
	return t == ShortBreak || t == LongBreak
}

// Session is a read-only projection of one cycle position.
type Session struct {
	Type    SessionType
	Number  uint8 // 1-based position within the cycle
	Minutes uint16
}

// Duration returns the configured length of the session.
func (s Session) Duration() time.Duration {
	return time.Duration(s.Minutes) * time.Minute
}

const (
	ClassicSessionsPerCycle = 4
	StudySessionsPerCycle   = 1

	MinSessionsPerCycle = 2
	MaxSessionsPerCycle = 8
)

// Defaults are the stock durations for a mode.
type Defaults struct {
	WorkMinutes       uint16
	ShortBreakMinutes uint16
	LongBreakMinutes  uint16
	SessionsPerCycle  uint8
}

// ModeDefaults returns the factory durations for m.
func ModeDefaults(m Mode) Defaults {
	switch m {
	case Study:
		return Defaults{WorkMinutes: 45, ShortBreakMinutes: 15, LongBreakMinutes: 30, SessionsPerCycle: StudySessionsPerCycle}
	default:
		return Defaults{WorkMinutes: 25, ShortBreakMinutes: 5, LongBreakMinutes: 15, SessionsPerCycle: ClassicSessionsPerCycle}
	}
}

// Sequence tracks the position inside the current cycle and the number of
// work sessions finished since the last daily reset.
type Sequence struct {
	mode           Mode
	position       uint8
	completedToday uint8

	workMinutes       uint16
	shortBreakMinutes uint16
	longBreakMinutes  uint16
	sessionsPerCycle  uint8
}

// New returns a Classic sequence at position 1 with the classic durations.
func New() *Sequence {
	d := ModeDefaults(Classic)
	return &Sequence{
		mode:              Classic,
		position:          1,
		workMinutes:       d.WorkMinutes,
		shortBreakMinutes: d.ShortBreakMinutes,
		longBreakMinutes:  d.LongBreakMinutes,
		sessionsPerCycle:  d.SessionsPerCycle,
	}
}

func (s *Sequence) Mode() Mode { return s.mode }

// SetMode switches the cycle shape. Progress in the current cycle is
// discarded even when the mode does not change.
func (s *Sequence) SetMode(m Mode) {
	if m > Custom {
		m = Classic
	}
	s.mode = m
	s.position = 1
}

func (s *Sequence) SetWorkMinutes(minutes uint16)       { s.workMinutes = atLeastOne(minutes) }
func (s *Sequence) SetShortBreakMinutes(minutes uint16) { s.shortBreakMinutes = atLeastOne(minutes) }
func (s *Sequence) SetLongBreakMinutes(minutes uint16)  { s.longBreakMinutes = atLeastOne(minutes) }

// SetSessionsPerCycle sets the Custom cycle length in work sessions,
// clamped to [MinSessionsPerCycle, MaxSessionsPerCycle]. A position that no
// longer fits the shorter cycle restarts at 1.
func (s *Sequence) SetSessionsPerCycle(count uint8) {
	s.sessionsPerCycle = clamp(count, MinSessionsPerCycle, MaxSessionsPerCycle)
	if s.position > s.TotalPositions() {
		s.position = 1
	}
}

func (s *Sequence) WorkMinutes() uint16       { return s.workMinutes }
func (s *Sequence) ShortBreakMinutes() uint16 { return s.shortBreakMinutes }
func (s *Sequence) LongBreakMinutes() uint16  { return s.longBreakMinutes }
func (s *Sequence) SessionsPerCycle() uint8   { return s.sessionsPerCycle }

// WorkSessionsPerCycle is the number of work sessions before a long break.
func (s *Sequence) WorkSessionsPerCycle() uint8 {
	switch s.mode {
	case Study:
		return StudySessionsPerCycle
	case Custom:
		return s.sessionsPerCycle
	default:
		return ClassicSessionsPerCycle
	}
}

// TotalPositions is the number of slots in one cycle. Every work session is
// followed by a break, so a cycle holds twice as many slots as work sessions
// and its last slot is the long break.
func (s *Sequence) TotalPositions() uint8 {
	return s.WorkSessionsPerCycle() * 2
}

// Position is the 1-based slot of the current session.
func (s *Sequence) Position() uint8 { return s.position }

// SessionTypeAt classifies a 1-based slot: the final slot of the cycle is
// the long break, remaining even slots are short breaks, odd slots are work.
func (s *Sequence) SessionTypeAt(position uint8) SessionType {
	total := s.TotalPositions()
	if total > 0 && position%total == 0 {
		return LongBreak
	}
	if position%2 == 0 {
		return ShortBreak
	}
	return Work
}

// DurationOf returns the configured minutes for t.
func (s *Sequence) DurationOf(t SessionType) uint16 {
	switch t {
	case ShortBreak:
		return s.shortBreakMinutes
	case LongBreak:
		return s.longBreakMinutes
	default:
		return s.workMinutes
	}
}

func (s *Sequence) sessionAt(position uint8) Session {
	t := s.SessionTypeAt(position)
	return Session{Type: t, Number: position, Minutes: s.DurationOf(t)}
}

func (s *Sequence) nextPosition() uint8 {
	next := s.position + 1
	if next > s.TotalPositions() {
		return 1
	}
	return next
}

// Current returns the session at the current position.
func (s *Sequence) Current() Session { return s.sessionAt(s.position) }

// Next returns the session that Advance would move to.
func (s *Sequence) Next() Session { return s.sessionAt(s.nextPosition()) }

// Advance moves to the next slot and reports whether the cycle wrapped.
func (s *Sequence) Advance() bool {
	s.position = s.nextPosition()
	return s.position == 1
}

// Start begins a new cycle.
func (s *Sequence) Start() { s.position = 1 }

// Reset returns to the first slot without touching the daily counter.
func (s *Sequence) Reset() { s.position = 1 }

func (s *Sequence) IsWork() bool      { return s.Current().Type == Work }
func (s *Sequence) IsBreak() bool     { return s.Current().Type.IsBreak() }
func (s *Sequence) IsLongBreak() bool { return s.Current().Type == LongBreak }

// IsNextLongBreak reports whether the slot after the current one is the long break.
func (s *Sequence) IsNextLongBreak() bool { return s.Next().Type == LongBreak }

// CurrentWorkSession returns the 1-based number of the work session in
// progress, or of the last one finished while on a break.
func (s *Sequence) CurrentWorkSession() uint8 {
	var done uint8
	for p := uint8(1); p < s.position; p++ {
		if s.SessionTypeAt(p) == Work {
			done++
		}
	}
	if s.IsWork() {
		return done + 1
	}
	if done == 0 {
		return 1
	}
	return done
}

func (s *Sequence) CompletedToday() uint8 { return s.completedToday }

// IncrementCompletedToday counts one finished work session, saturating at 255.
func (s *Sequence) IncrementCompletedToday() {
	if s.completedToday < 0xFF {
		s.completedToday++
	}
}

// ResetDailyCounter zeroes the daily count; call it when the day rolls over.
func (s *Sequence) ResetDailyCounter() { s.completedToday = 0 }

func atLeastOne(v uint16) uint16 {
	if v == 0 {
		return 1
	}
	return v
}

func clamp(v, lo, hi uint8) uint8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
