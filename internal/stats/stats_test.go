package stats

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pomotick/internal/store"
)

type fakeDays struct{ day atomic.Uint32 }

func (f *fakeDays) EpochDays() uint32 { return f.day.Load() }
func (f *fakeDays) set(d uint32)      { f.day.Store(d) }

// flakyKV fails writes while failPut is set.
type flakyKV struct {
	store.KV
	failPut bool
}

func (f *flakyKV) Put(key string, value []byte) error {
	if f.failPut {
		return errors.New("flash worn out")
	}
	return f.KV.Put(key, value)
}

func newBucket(t *testing.T) *store.Bucket {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Bucket("stats")
}

func newStats(t *testing.T, day uint32, opts ...Option) (*Store, *fakeDays, *store.Bucket) {
	t.Helper()
	b := newBucket(t)
	days := &fakeDays{}
	days.set(day)
	s := New(b, days, opts...)
	require.True(t, s.Begin())
	return s, days, b
}

func putRecord(t *testing.T, kv store.KV, rec DayStats) {
	t.Helper()
	raw, err := rec.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, kv.Put(SlotKey(rec.Day), raw))
}

func TestBlobLayout(t *testing.T) {
	raw, err := DayStats{Day: 0x01020304, CompletedSessions: 0x0506, WorkMinutes: 0x0708, BreakMinutes: 0x090A, Interruptions: 0x0B}.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0x06, 0x05, 0x08, 0x07, 0x0A, 0x09, 0x0B, 0x00}, raw)

	var back DayStats
	require.NoError(t, back.UnmarshalBinary(raw))
	assert.Equal(t, uint32(0x01020304), back.Day)
	assert.Error(t, back.UnmarshalBinary(raw[:11]))
}

func TestBeginWritesVersion(t *testing.T) {
	_, _, b := newStats(t, 20000)
	raw, err := b.Get(VersionKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{SchemaVersion}, raw)
}

func TestRecordCompletedWork(t *testing.T) {
	s, _, _ := newStats(t, 20000)
	require.True(t, s.RecordWorkSession(25, true))

	today := s.Today()
	assert.Equal(t, uint32(20000), today.Day)
	assert.Equal(t, uint16(1), today.CompletedSessions)
	assert.Equal(t, uint16(25), today.WorkMinutes)
	assert.Zero(t, today.Interruptions)
}

func TestRecordInterruptedWork(t *testing.T) {
	s, _, _ := newStats(t, 20000)
	s.RecordWorkSession(12, false)
	s.RecordInterruption()
	s.RecordBreakSession(5)

	today := s.Today()
	assert.Zero(t, today.CompletedSessions)
	assert.Zero(t, today.WorkMinutes)
	assert.Equal(t, uint8(2), today.Interruptions)
	assert.Equal(t, uint16(5), today.BreakMinutes)
}

func TestDateNeverWritten(t *testing.T) {
	s, _, _ := newStats(t, 20000)
	for _, day := range []uint32{0, 1, 19999, 123456} {
		got := s.Date(day)
		assert.True(t, got.IsZero(), "day %d", day)
	}
}

func TestSlotIdentityCheck(t *testing.T) {
	s, days, _ := newStats(t, 10)
	s.RecordWorkSession(25, true)

	days.set(100) // same slot as day 10
	s.RecordWorkSession(25, true)
	s.RecordWorkSession(25, true)

	assert.True(t, s.Date(10).IsZero())
	assert.Equal(t, uint16(2), s.Date(100).CompletedSessions)
}

func TestRolloverStartsFreshDay(t *testing.T) {
	s, days, _ := newStats(t, 500)
	s.RecordWorkSession(25, true)

	days.set(501)
	today := s.Today()
	assert.Equal(t, uint32(501), today.Day)
	assert.True(t, today.IsZero())
	assert.Equal(t, uint16(1), s.Date(500).CompletedSessions)
}

func TestSurvivesRestart(t *testing.T) {
	s, days, b := newStats(t, 700)
	s.RecordWorkSession(25, true)
	s.RecordBreakSession(5)

	reopened := New(b, days)
	require.True(t, reopened.Begin())
	assert.Equal(t, DayStats{Day: 700, CompletedSessions: 1, WorkMinutes: 25, BreakMinutes: 5}, reopened.Today())
}

func TestVersionMismatchClearsRing(t *testing.T) {
	b := newBucket(t)
	putRecord(t, b, DayStats{Day: 300, CompletedSessions: 9})
	require.NoError(t, b.Put(VersionKey, []byte{99}))

	days := &fakeDays{}
	days.set(300)
	s := New(b, days)
	require.True(t, s.Begin())
	assert.True(t, s.Today().IsZero())
}

func TestLastNDays(t *testing.T) {
	s, _, b := newStats(t, 1000)
	putRecord(t, b, DayStats{Day: 999, CompletedSessions: 3})
	putRecord(t, b, DayStats{Day: 997, CompletedSessions: 1})
	s.RecordWorkSession(25, true)

	week := s.Last7Days()
	require.Len(t, week, 7)
	assert.Equal(t, uint32(1000), week[0].Day)
	assert.Equal(t, uint16(1), week[0].CompletedSessions)
	assert.Equal(t, uint16(3), week[1].CompletedSessions)
	assert.True(t, week[2].IsZero())
	assert.Equal(t, uint32(998), week[2].Day)
	assert.Equal(t, uint16(1), week[3].CompletedSessions)

	assert.Equal(t, uint32(5), s.Last7DaysTotal())
	assert.Equal(t, uint32(5), s.Last30DaysTotal())
	assert.Len(t, s.LastNDays(500), WindowDays)
	assert.Empty(t, s.LastNDays(-1))
	assert.Len(t, s.Last30Days(), 30)
}

func TestTotalCompletedScansWindow(t *testing.T) {
	s, _, b := newStats(t, 1000)
	putRecord(t, b, DayStats{Day: 950, CompletedSessions: 4})
	putRecord(t, b, DayStats{Day: 911, CompletedSessions: 2})
	putRecord(t, b, DayStats{Day: 905, CompletedSessions: 100}) // outside the window
	s.RecordWorkSession(25, true)

	assert.Equal(t, uint32(7), s.TotalCompleted())
}

func TestTotalCompletedCountsWhatCleanupKeeps(t *testing.T) {
	s, _, b := newStats(t, 1000)
	putRecord(t, b, DayStats{Day: 910, CompletedSessions: 3}) // 90 days old
	putRecord(t, b, DayStats{Day: 909, CompletedSessions: 5}) // 91 days old

	assert.Equal(t, uint32(3), s.TotalCompleted())
	assert.Equal(t, 1, s.Cleanup())
	assert.Equal(t, uint32(3), s.TotalCompleted())
}

func TestCompletionRate(t *testing.T) {
	s, _, b := newStats(t, 1000)
	assert.Zero(t, s.CompletionRate())

	s.RecordWorkSession(25, true)
	putRecord(t, b, DayStats{Day: 990, CompletedSessions: 2})
	assert.InDelta(t, 100.0, s.CompletionRate(), 1e-9)

	s.RecordWorkSession(10, false)
	assert.InDelta(t, 75.0, s.CompletionRate(), 1e-9)

	// outside the 30-day window
	putRecord(t, b, DayStats{Day: 960, Interruptions: 50})
	assert.InDelta(t, 75.0, s.CompletionRate(), 1e-9)
}

func TestCleanup(t *testing.T) {
	s, _, b := newStats(t, 1000)
	putRecord(t, b, DayStats{Day: 909, CompletedSessions: 1}) // 91 days old
	putRecord(t, b, DayStats{Day: 910, CompletedSessions: 1}) // 90 days old
	putRecord(t, b, DayStats{Day: 995, CompletedSessions: 1})
	require.NoError(t, b.Put("day_20", []byte{1, 2, 3}))

	assert.Equal(t, 2, s.Cleanup())

	_, err := b.Get(SlotKey(909))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = b.Get("day_20")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, uint16(1), s.Date(910).CompletedSessions)
	assert.Equal(t, uint16(1), s.Date(995).CompletedSessions)

	assert.Zero(t, s.Cleanup())
}

func TestClear(t *testing.T) {
	s, _, b := newStats(t, 1000)
	s.RecordWorkSession(25, true)
	putRecord(t, b, DayStats{Day: 999, CompletedSessions: 3})

	s.Clear()
	assert.True(t, s.Today().IsZero())
	assert.Zero(t, s.TotalCompleted())
	_, err := b.Get(VersionKey)
	assert.NoError(t, err, "schema tag survives clear")
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	kv := &flakyKV{KV: newBucket(t)}
	days := &fakeDays{}
	days.set(42)
	s := New(kv, days)
	require.True(t, s.Begin())

	kv.failPut = true
	assert.False(t, s.RecordWorkSession(25, true))
	assert.Equal(t, uint16(1), s.Today().CompletedSessions)

	kv.failPut = false
	assert.True(t, s.RecordWorkSession(25, true))
	assert.Equal(t, uint16(2), s.Date(42).CompletedSessions)
}

func TestUnavailableDayKeepsCache(t *testing.T) {
	s, days, _ := newStats(t, 42)
	days.set(0)
	assert.True(t, s.RecordWorkSession(25, true))
	assert.Equal(t, uint32(42), s.Today().Day)
}

func TestLockTimeoutIsSoft(t *testing.T) {
	s, _, _ := newStats(t, 42, WithLockTimeout(5*time.Millisecond))
	s.RecordWorkSession(25, true)

	require.NoError(t, s.mu.Lock())
	assert.Equal(t, DayStats{}, s.Today())
	assert.False(t, s.RecordWorkSession(25, true))
	assert.Zero(t, s.Cleanup())
	s.mu.Unlock()

	assert.Equal(t, uint16(1), s.Today().CompletedSessions)
}

func TestCountersSaturate(t *testing.T) {
	b := newBucket(t)
	putRecord(t, b, DayStats{Day: 42, WorkMinutes: 0xFFF0, Interruptions: 0xFF})
	days := &fakeDays{}
	days.set(42)
	s := New(b, days)
	require.True(t, s.Begin())

	s.RecordWorkSession(60, true)
	s.RecordInterruption()
	today := s.Today()
	assert.Equal(t, uint16(0xFFFF), today.WorkMinutes)
	assert.Equal(t, uint8(0xFF), today.Interruptions)
}
