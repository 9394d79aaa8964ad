// Package stats keeps per-day session statistics in a 90-slot ring.
//
// Slot day_<n> holds the record for the most recent day d with
// d mod 90 == n. A slot is only trusted when the day embedded in the record
// matches the day being asked for; anything else reads as an empty day.
// Every mutation is written through before the call returns.
package stats

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/sadopc/pomotick/internal/lock"
	"github.com/sadopc/pomotick/internal/store"
)

const (
	// WindowDays is the ring size and the retention window.
	WindowDays = 90
	// SchemaVersion is written under VersionKey.
	SchemaVersion byte = 1
	VersionKey         = "version"
)

// DayClock supplies the current day index.
type DayClock interface {
	EpochDays() uint32
}

// SlotKey is the key of the ring slot holding day.
func SlotKey(day uint32) string {
	return slotKey(int(day % WindowDays))
}

func slotKey(slot int) string {
	return fmt.Sprintf("day_%d", slot)
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.mu = lock.New(d) }
}

// Store is safe for concurrent use. Each method takes a bounded lock; a
// timed-out call logs and returns the zero value.
type Store struct {
	mu     *lock.Mutex
	kv     store.KV
	days   DayClock
	logger *slog.Logger

	today      DayStats
	cacheValid bool
}

func New(kv store.KV, days DayClock, opts ...Option) *Store {
	s := &Store{
		mu:   lock.New(lock.DefaultTimeout),
		kv:   kv,
		days: days,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With("component", "stats")
	return s
}

func (s *Store) guard(op string, fn func()) bool {
	if err := s.mu.Do(fn); err != nil {
		s.logger.Warn("lock timeout", "op", op, "timeout", s.mu.Timeout())
		return false
	}
	return true
}

// Begin checks the schema tag and loads today's record into the cache. A
// ring written under another schema version is discarded.
func (s *Store) Begin() bool {
	ok := true
	locked := s.guard("begin", func() {
		raw, err := s.kv.Get(VersionKey)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			s.logger.Warn("read schema version", "error", err)
			ok = false
		case len(raw) != 1 || raw[0] != SchemaVersion:
			s.logger.Warn("schema version mismatch, clearing ring", "stored", raw, "want", SchemaVersion)
			s.clearLocked()
		}
		if err := s.kv.Put(VersionKey, []byte{SchemaVersion}); err != nil {
			s.logger.Warn("write schema version", "error", err)
			ok = false
		}

		day := s.days.EpochDays()
		if day == 0 {
			return
		}
		s.today = s.readLocked(day)
		s.cacheValid = true
		s.logger.Info("statistics loaded", "day", day, "completed", s.today.CompletedSessions)
	})
	return locked && ok
}

// readLocked returns the stored record for day, or a zeroed record for day
// when the slot is empty, unreadable or holds another day.
func (s *Store) readLocked(day uint32) DayStats {
	empty := DayStats{Day: day}
	raw, err := s.kv.Get(SlotKey(day))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("read day record", "day", day, "error", err)
		}
		return empty
	}
	var rec DayStats
	if err := rec.UnmarshalBinary(raw); err != nil {
		s.logger.Debug("corrupt day record treated as absent", "day", day, "error", err)
		return empty
	}
	if rec.Day != day {
		return empty
	}
	return rec
}

func (s *Store) saveLocked() bool {
	raw, _ := s.today.MarshalBinary()
	if err := s.kv.Put(SlotKey(s.today.Day), raw); err != nil {
		s.logger.Warn("persist day record, keeping in memory", "day", s.today.Day, "error", err)
		return false
	}
	return true
}

// ensureTodayLocked rolls the cache over when the day changed. It reports
// false when no day is available at all.
func (s *Store) ensureTodayLocked() bool {
	day := s.days.EpochDays()
	if day == 0 {
		if s.cacheValid {
			s.logger.Warn("current day unavailable, recording into cached day", "day", s.today.Day)
			return true
		}
		s.logger.Warn("current day unavailable, dropping record")
		return false
	}
	if s.cacheValid && s.today.Day == day {
		return true
	}
	s.logger.Info("new day", "day", day)
	s.today = s.readLocked(day)
	s.cacheValid = true
	s.saveLocked()
	return true
}

func (s *Store) mutate(op string, fn func(*DayStats)) bool {
	var persisted bool
	s.guard(op, func() {
		if !s.ensureTodayLocked() {
			return
		}
		fn(&s.today)
		persisted = s.saveLocked()
	})
	return persisted
}

// RecordWorkSession counts a finished work session. A session that did not
// complete counts as an interruption and adds no minutes. It reports whether
// the record reached storage.
func (s *Store) RecordWorkSession(minutes uint16, completed bool) bool {
	s.logger.Debug("work session", "minutes", minutes, "completed", completed)
	return s.mutate("record_work", func(d *DayStats) {
		if completed {
			d.CompletedSessions = addU16(d.CompletedSessions, 1)
			d.WorkMinutes = addU16(d.WorkMinutes, minutes)
		} else {
			d.Interruptions = incU8(d.Interruptions)
		}
	})
}

func (s *Store) RecordBreakSession(minutes uint16) bool {
	s.logger.Debug("break session", "minutes", minutes)
	return s.mutate("record_break", func(d *DayStats) {
		d.BreakMinutes = addU16(d.BreakMinutes, minutes)
	})
}

func (s *Store) RecordInterruption() bool {
	return s.mutate("record_interruption", func(d *DayStats) {
		d.Interruptions = incU8(d.Interruptions)
	})
}

// Today returns the cached record for the current day.
func (s *Store) Today() DayStats {
	var out DayStats
	s.guard("today", func() {
		if s.ensureTodayLocked() {
			out = s.today
		}
	})
	return out
}

func (s *Store) dateLocked(day uint32) DayStats {
	if s.cacheValid && s.today.Day == day {
		return s.today
	}
	return s.readLocked(day)
}

// Date returns the record for day; days without data read as zero.
func (s *Store) Date(day uint32) DayStats {
	out := DayStats{Day: day}
	s.guard("date", func() { out = s.dateLocked(day) })
	return out
}

func (s *Store) lastNLocked(n int) []DayStats {
	n = min(max(n, 0), WindowDays)
	today := s.days.EpochDays()
	if today == 0 && s.cacheValid {
		today = s.today.Day
	}
	return lo.Times(n, func(i int) DayStats {
		if uint32(i) > today {
			return DayStats{}
		}
		return s.dateLocked(today - uint32(i))
	})
}

// LastNDays returns n records walking back from today; index 0 is today.
// n is capped at WindowDays.
func (s *Store) LastNDays(n int) []DayStats {
	var out []DayStats
	s.guard("last_n_days", func() { out = s.lastNLocked(n) })
	return out
}

func (s *Store) Last7Days() []DayStats  { return s.LastNDays(7) }
func (s *Store) Last30Days() []DayStats { return s.LastNDays(30) }

func completedOf(d DayStats) uint32 { return uint32(d.CompletedSessions) }

// LastNDaysTotal sums completed sessions over the last n days.
func (s *Store) LastNDaysTotal(n int) uint32 {
	return lo.SumBy(s.LastNDays(n), completedOf)
}

func (s *Store) Last7DaysTotal() uint32  { return s.LastNDaysTotal(7) }
func (s *Store) Last30DaysTotal() uint32 { return s.LastNDaysTotal(30) }

// expired reports whether a record for day is past retention. Cleanup
// deletes exactly these, so every record it keeps is still counted.
func expired(day, today uint32) bool {
	return day < today && today-day > WindowDays
}

// TotalCompleted scans every slot and sums completed sessions of records
// still inside the retention window.
func (s *Store) TotalCompleted() uint32 {
	var total uint32
	s.guard("total_completed", func() {
		today := s.days.EpochDays()
		records := lo.FilterMap(lo.Range(WindowDays), func(slot int, _ int) (DayStats, bool) {
			raw, err := s.kv.Get(slotKey(slot))
			if err != nil {
				return DayStats{}, false
			}
			var rec DayStats
			if rec.UnmarshalBinary(raw) != nil {
				return DayStats{}, false
			}
			if today != 0 && (rec.Day > today || expired(rec.Day, today)) {
				return DayStats{}, false
			}
			return rec, true
		})
		total = lo.SumBy(records, completedOf)
	})
	return total
}

// CompletionRate is completed/(completed+interrupted) over the last 30 days,
// as a percentage. It is 0 when nothing was recorded.
func (s *Store) CompletionRate() float64 {
	days := s.LastNDays(30)
	completed := lo.SumBy(days, completedOf)
	interrupted := lo.SumBy(days, func(d DayStats) uint32 { return uint32(d.Interruptions) })
	if completed+interrupted == 0 {
		return 0
	}
	return float64(completed) * 100 / float64(completed+interrupted)
}

// Cleanup deletes every slot whose record is more than WindowDays days
// older than today, plus unreadable slots, and returns how many it removed.
func (s *Store) Cleanup() int {
	removed := 0
	s.guard("cleanup", func() {
		today := s.days.EpochDays()
		if today == 0 {
			s.logger.Warn("cleanup skipped, current day unavailable")
			return
		}
		for slot := range WindowDays {
			key := slotKey(slot)
			raw, err := s.kv.Get(key)
			if err != nil {
				continue
			}
			var rec DayStats
			stale := rec.UnmarshalBinary(raw) != nil || expired(rec.Day, today)
			if !stale {
				continue
			}
			if err := s.kv.Delete(key); err != nil {
				s.logger.Warn("remove stale day record", "key", key, "error", err)
				continue
			}
			s.logger.Debug("removed stale day record", "key", key, "day", rec.Day)
			removed++
		}
		if removed > 0 {
			s.logger.Info("cleanup", "removed", removed)
		}
	})
	return removed
}

func (s *Store) clearLocked() {
	for slot := range WindowDays {
		if err := s.kv.Delete(slotKey(slot)); err != nil {
			s.logger.Warn("clear day record", "slot", slot, "error", err)
		}
	}
	s.today = DayStats{}
	s.cacheValid = false
}

// Clear erases every day record and the cache.
func (s *Store) Clear() {
	s.guard("clear", func() {
		s.logger.Info("clearing all statistics")
		s.clearLocked()
	})
}
