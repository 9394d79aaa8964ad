// Package device wires the session core together the way the firmware's
// main task does: the timer engine drives the sequence, completions flow
// into statistics, the session log and the publisher, and the time
// authority decides when a day ends.
package device

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/pomotick/internal/publish"
	"github.com/sadopc/pomotick/internal/sequence"
	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
	"github.com/sadopc/pomotick/internal/timer"
)

const (
	// SnapshotKey holds the packed sequence word and the day it belongs to.
	SnapshotKey = "sequence"

	BucketDevice = "device"
	BucketStats  = "stats"
)

// Status strings shown by the host shells.
const (
	StatusIdle   = "IDLE"
	StatusWork   = "WORK"
	StatusBreak  = "BREAK"
	StatusPaused = "PAUSED"
)

// TimeSource is the slice of the time authority the device needs.
type TimeSource interface {
	EpochDays() uint32
	IsMidnightCrossed() bool
	Update(ctx context.Context) bool
	LocalTime() time.Time
}

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	NoticeCompleted NoticeKind = iota
	NoticeWarning
	NoticeInterrupted
	NoticeMidnight
)

// Notice tells a host shell that something worth showing happened.
type Notice struct {
	Kind    NoticeKind
	Session sequence.Session
}

// Deps are the collaborators of a Device.
type Deps struct {
	Store     *store.Store
	Stats     *stats.Store
	Time      TimeSource
	Publisher publish.Publisher
	Logger    *slog.Logger
	// Notify, if set, is called synchronously for every Notice.
	Notify func(Notice)
}

// View is everything a shell needs to draw one frame.
type View struct {
	timer.Snapshot
	Status           string
	Mode             sequence.Mode
	CompletedToday   uint8
	WorkSession      uint8
	SessionsPerCycle uint8
	Progress         uint8
}

// Device is driven from one goroutine (Tick and Handle). Settings may be
// read and changed from any goroutine.
type Device struct {
	engine    *timer.Engine
	stats     *stats.Store
	store     *store.Store
	kv        store.KV
	clock     TimeSource
	publisher publish.Publisher
	notify    func(Notice)
	logger    *slog.Logger

	mu       sync.Mutex
	settings Settings
	// pending marks a mode or cycle length that must wait for Idle
	pending bool
}

// New builds a Device and its engine. Call Boot before use.
func New(deps Deps) *Device {
	d := &Device{
		stats:     deps.Stats,
		store:     deps.Store,
		kv:        deps.Store.Bucket(BucketDevice),
		clock:     deps.Time,
		publisher: deps.Publisher,
		notify:    deps.Notify,
		logger:    deps.Logger,
		settings:  DefaultSettings(),
	}
	if d.publisher == nil {
		d.publisher = publish.Nop{}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.logger = d.logger.With("component", "device")

	d.engine = timer.New(sequence.New(), timer.Callbacks{
		OnStateChange: d.onStateChange,
		OnTimeout:     d.onTimeout,
		OnWarning:     d.onWarning,
	}, deps.Logger)
	return d
}

// Engine exposes the timer engine for read access by shells.
func (d *Device) Engine() *timer.Engine { return d.engine }

// Boot loads settings, restores the sequence snapshot and loads today's
// statistics. A snapshot from an earlier day keeps its position but not its
// daily count.
func (d *Device) Boot() {
	d.mu.Lock()
	d.settings = LoadSettings(d.store)
	settings := d.settings
	d.mu.Unlock()

	d.stats.Begin()
	today := d.clock.EpochDays()

	word, day, err := d.loadSnapshot()
	d.engine.WithSequence(func(seq *sequence.Sequence) {
		settings.applyDurations(seq)
		seq.SetMode(settings.Mode)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				d.logger.Warn("load sequence snapshot", "error", err)
			}
			return
		}
		if !seq.Decode(word) {
			d.logger.Debug("sequence snapshot repaired", "word", word)
		}
		if seq.Mode() != settings.Mode {
			seq.SetMode(settings.Mode)
		}
		if day != today {
			seq.ResetDailyCounter()
		}
	})
	d.saveSnapshot()

	v := d.View()
	d.logger.Info("device ready",
		"mode", v.Mode.String(),
		"position", v.Session.Number,
		"completed_today", v.CompletedToday,
	)
}

// loadSnapshot reads the 8-byte blob: [0:4] sequence word, [4:8] day.
func (d *Device) loadSnapshot() (uint32, uint32, error) {
	raw, err := d.kv.Get(SnapshotKey)
	if err != nil {
		return 0, 0, err
	}
	if len(raw) != 8 {
		return 0, 0, errors.New("malformed sequence snapshot")
	}
	return binary.LittleEndian.Uint32(raw[0:4]), binary.LittleEndian.Uint32(raw[4:8]), nil
}

// saveSnapshot persists the sequence word. A failed write is logged; the
// in-memory sequence stays authoritative.
func (d *Device) saveSnapshot() bool {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], d.engine.Snapshot().Sequence)
	binary.LittleEndian.PutUint32(buf[4:8], d.clock.EpochDays())
	if err := d.kv.Put(SnapshotKey, buf[:]); err != nil {
		d.logger.Warn("save sequence snapshot", "error", err)
		return false
	}
	return true
}

// Settings returns the active preferences.
func (d *Device) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// ApplySettings persists v. Durations apply from the next start. A mode or
// cycle length change moves the cycle position, so it waits until the
// engine is idle.
func (d *Device) ApplySettings(v Settings) error {
	v.WorkMinutes = clampMinutes(int(v.WorkMinutes))
	v.ShortBreakMinutes = clampMinutes(int(v.ShortBreakMinutes))
	v.LongBreakMinutes = clampMinutes(int(v.LongBreakMinutes))
	v.SessionsPerCycle = clampSessions(int(v.SessionsPerCycle))
	if err := SaveSettings(d.store, v); err != nil {
		return err
	}

	d.mu.Lock()
	if d.settings.Mode != v.Mode || d.settings.SessionsPerCycle != v.SessionsPerCycle {
		d.pending = true
	}
	d.settings = v
	d.mu.Unlock()

	d.engine.WithSequence(v.applyMinutes)
	if d.engine.State() == timer.Idle {
		d.applyPending()
	}
	d.saveSnapshot()
	d.logger.Info("settings applied", "mode", v.Mode.String(), "work", v.WorkMinutes, "sessions", v.SessionsPerCycle)
	return nil
}

func (d *Device) applyPending() {
	d.mu.Lock()
	pending := d.pending
	v := d.settings
	d.pending = false
	d.mu.Unlock()
	if !pending {
		return
	}
	d.engine.WithSequence(func(seq *sequence.Sequence) {
		seq.SetSessionsPerCycle(v.SessionsPerCycle)
		if seq.Mode() != v.Mode {
			seq.SetMode(v.Mode)
		}
	})
	d.saveSnapshot()
}

// Handle forwards a user event to the engine. Stopping or skipping a work
// session that has begun counts as an interrupted session. Held settings
// apply once the engine is back to idle.
func (d *Device) Handle(ev timer.Event) bool {
	if ev == timer.EventStart {
		d.applyPending()
	}
	before := d.engine.Snapshot()
	if !d.engine.HandleEvent(ev) {
		return false
	}

	if (ev == timer.EventStop || ev == timer.EventSkip) && before.State != timer.Idle && before.Session.Type == sequence.Work {
		minutes := uint16(before.Elapsed() / time.Minute)
		d.stats.RecordWorkSession(minutes, false)
		d.logSession(before.Session.Type, int(minutes), false)
		d.emit(Notice{Kind: NoticeInterrupted, Session: before.Session})
	}
	if ev == timer.EventSkip {
		d.saveSnapshot()
	}
	if d.engine.State() == timer.Idle {
		d.applyPending()
	}
	return true
}

// Toggle starts when idle, pauses when active and resumes when paused.
func (d *Device) Toggle() bool {
	switch d.engine.State() {
	case timer.Active:
		return d.Handle(timer.EventPause)
	case timer.Paused:
		return d.Handle(timer.EventResume)
	default:
		return d.Handle(timer.EventStart)
	}
}

// Tick advances the countdown and handles a day change.
func (d *Device) Tick(delta time.Duration) {
	d.engine.Update(delta)
	if d.clock.IsMidnightCrossed() {
		d.onMidnight()
	}
}

// RunSync calls the time authority's Update every interval until ctx ends.
// The authority decides whether a network sync is due.
func (d *Device) RunSync(ctx context.Context, interval time.Duration) {
	d.clock.Update(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.clock.Update(ctx)
		}
	}
}

// Shutdown persists the snapshot and closes the publisher.
func (d *Device) Shutdown() {
	d.saveSnapshot()
	if err := d.publisher.Close(); err != nil {
		d.logger.Warn("close publisher", "error", err)
	}
}

// Status is IDLE, WORK, BREAK or PAUSED.
func (d *Device) Status() string {
	return statusOf(d.engine.Snapshot())
}

func statusOf(s timer.Snapshot) string {
	switch s.State {
	case timer.Paused:
		return StatusPaused
	case timer.Active:
		if s.Session.Type == sequence.Work {
			return StatusWork
		}
		return StatusBreak
	}
	return StatusIdle
}

// View returns a consistent frame of device state.
func (d *Device) View() View {
	var v View
	d.engine.WithSequence(func(seq *sequence.Sequence) {
		v.Mode = seq.Mode()
		v.CompletedToday = seq.CompletedToday()
		v.WorkSession = seq.CurrentWorkSession()
		v.SessionsPerCycle = seq.WorkSessionsPerCycle()
	})
	v.Snapshot = d.engine.Snapshot()
	v.Status = statusOf(v.Snapshot)
	v.Progress = d.engine.ProgressPercent()
	return v
}

func (d *Device) onStateChange(from, to timer.State) {
	d.logger.Debug("state change", "from", from.String(), "to", to.String())
}

func (d *Device) onWarning(s sequence.Session) {
	d.emit(Notice{Kind: NoticeWarning, Session: s})
}

// onTimeout runs after the engine released its lock, with the sequence
// already on the next session.
func (d *Device) onTimeout(completed sequence.Session) {
	if completed.Type == sequence.Work {
		d.engine.WithSequence(func(seq *sequence.Sequence) { seq.IncrementCompletedToday() })
		d.stats.RecordWorkSession(completed.Minutes, true)
	} else {
		d.stats.RecordBreakSession(completed.Minutes)
	}
	d.logSession(completed.Type, int(completed.Minutes), true)
	d.saveSnapshot()
	d.emit(Notice{Kind: NoticeCompleted, Session: completed})

	d.applyPending()
	next := d.engine.Snapshot().Session
	settings := d.Settings()
	if (next.Type.IsBreak() && settings.AutoStartBreaks) || (next.Type == sequence.Work && settings.AutoStartWork) {
		d.logger.Debug("auto-starting", "session", next.Type.String())
		d.engine.HandleEvent(timer.EventStart)
	}
}

func (d *Device) onMidnight() {
	today := d.clock.EpochDays()
	d.logger.Info("day rolled over", "day", today)

	if today > 0 {
		prev := d.stats.Date(today - 1)
		summary := publish.DailySummary{
			Timestamp:     d.clock.LocalTime(),
			Day:           today - 1,
			Date:          time.Unix(int64(today-1)*86400, 0).UTC().Format(time.DateOnly),
			Completed:     int(prev.CompletedSessions),
			WorkMinutes:   int(prev.WorkMinutes),
			BreakMinutes:  int(prev.BreakMinutes),
			Interruptions: int(prev.Interruptions),
		}
		if err := d.publisher.PublishDaily(summary); err != nil {
			d.logger.Warn("publish daily summary", "error", err)
		}
	}

	d.engine.WithSequence(func(seq *sequence.Sequence) { seq.ResetDailyCounter() })
	d.saveSnapshot()

	removed := d.stats.Cleanup()
	var pruned int64
	if today > stats.WindowDays {
		var err error
		pruned, err = d.store.PruneSessions(today - stats.WindowDays)
		if err != nil {
			d.logger.Warn("prune session log", "error", err)
		}
	}
	d.logger.Info("daily maintenance", "stats_removed", removed, "log_pruned", pruned)
	d.emit(Notice{Kind: NoticeMidnight})
}

func (d *Device) logSession(t sequence.SessionType, minutes int, completed bool) {
	rec := store.SessionRecord{
		Day:       d.clock.EpochDays(),
		Kind:      kindOf(t),
		Minutes:   minutes,
		Completed: completed,
		EndedAt:   d.clock.LocalTime(),
	}
	if _, err := d.store.AppendSession(rec); err != nil {
		d.logger.Warn("append session log", "error", err)
	}

	var completedToday uint8
	d.engine.WithSequence(func(seq *sequence.Sequence) { completedToday = seq.CompletedToday() })
	err := d.publisher.PublishSession(publish.SessionEvent{
		Timestamp:      rec.EndedAt,
		Kind:           string(rec.Kind),
		Minutes:        minutes,
		Completed:      completed,
		CompletedToday: int(completedToday),
	})
	if err != nil {
		d.logger.Warn("publish session", "error", err)
	}
}

func kindOf(t sequence.SessionType) store.SessionKind {
	switch t {
	case sequence.ShortBreak:
		return store.KindShortBreak
	case sequence.LongBreak:
		return store.KindLongBreak
	}
	return store.KindWork
}

func (d *Device) emit(n Notice) {
	if d.notify != nil {
		d.notify(n)
	}
}
