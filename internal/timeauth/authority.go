// Package timeauth keeps the device's notion of wall-clock time.
//
// The hardware RTC is the durable source: every read goes through to it. A
// SyncClient corrects the RTC periodically, and the deviation between the
// synced time and the time extrapolated from the previous sync is folded
// into a drift estimate. When the RTC holds an implausible date on boot it
// is seeded with DefaultEpoch.
package timeauth

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/sadopc/pomotick/internal/lock"
)

const (
	// DefaultResyncInterval is how often Update attempts a sync.
	DefaultResyncInterval = 6 * time.Hour

	// driftResetThreshold is the deviation, in seconds, beyond which a sync
	// is treated as a clock jump rather than drift.
	driftResetThreshold = 10
	driftOldWeight      = 0.8
	driftNewWeight      = 0.2
)

// RTC is a battery-backed calendar clock.
type RTC interface {
	ReadDateTime() (DateTime, error)
	WriteDateTime(DateTime) error
}

// SyncClient fetches network time. Update performs the exchange and
// reports success; EpochTime returns the last result, 0 when invalid.
type SyncClient interface {
	Update(ctx context.Context) bool
	EpochTime() uint32
}

// Source identifies where the current time came from.
type Source uint8

const (
	SourceUnknown Source = iota
	SourceRTC
	SourceNTP
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRTC:
		return "rtc"
	case SourceNTP:
		return "ntp"
	case SourceFallback:
		return "fallback"
	}
	return "unknown"
}

// Option configures an Authority.
type Option func(*Authority)

func WithClock(c Clock) Option { return func(a *Authority) { a.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(a *Authority) { a.logger = l } }

func WithLockTimeout(d time.Duration) Option {
	return func(a *Authority) { a.mu = lock.New(d) }
}

func WithResyncInterval(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.resyncInterval = d
		}
	}
}

// Authority is safe for concurrent use. Every method takes a bounded lock;
// on timeout it logs and returns the zero value.
type Authority struct {
	mu     *lock.Mutex
	rtc    RTC
	client SyncClient
	clock  Clock
	logger *slog.Logger

	resyncInterval time.Duration
	utcOffset      int32
	source         Source

	synced        bool
	lastSyncEpoch uint32
	lastSyncTick  time.Time
	driftPPM      float64
	driftSamples  int

	// last RTC reading that passed validation, for extrapolation when a
	// later read fails
	lastGoodEpoch uint32
	lastGoodTick  time.Time

	lastMidnight uint32

	attempted   bool
	lastAttempt time.Time
	syncing     bool
}

// New returns an Authority. Call Begin before reading time.
func New(rtc RTC, client SyncClient, opts ...Option) *Authority {
	a := &Authority{
		mu:             lock.New(lock.DefaultTimeout),
		rtc:            rtc,
		client:         client,
		clock:          SystemClock{},
		resyncInterval: DefaultResyncInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	a.logger = a.logger.With("component", "timeauth")
	return a
}

func (a *Authority) guard(op string, fn func()) bool {
	if err := a.mu.Do(fn); err != nil {
		a.logger.Warn("lock timeout", "op", op, "timeout", a.mu.Timeout())
		return false
	}
	return true
}

// Begin loads time from the RTC. An implausible reading is replaced with
// DefaultEpoch, which is written back so later reads agree. It returns false
// when the fallback could not be persisted or the lock was not acquired.
func (a *Authority) Begin(utcOffset int32) bool {
	persisted := true
	locked := a.guard("begin", func() {
		a.utcOffset = utcOffset
		now := a.clock.Now()

		dt, err := a.rtc.ReadDateTime()
		if err == nil {
			err = dt.Validate()
		}
		if err == nil {
			epoch := toEpoch(dt, a.utcOffset)
			a.lastGoodEpoch, a.lastGoodTick = epoch, now
			a.source = SourceRTC
			a.lastMidnight = dayStart(epoch)
			a.logger.Info("time loaded from rtc", "epoch", epoch, "rtc", dt.String())
			return
		}

		a.logger.Warn("rtc invalid, seeding fallback", "error", err, "epoch", DefaultEpoch)
		a.lastGoodEpoch, a.lastGoodTick = DefaultEpoch, now
		a.source = SourceFallback
		a.lastMidnight = dayStart(DefaultEpoch)
		if werr := a.rtc.WriteDateTime(fromEpoch(DefaultEpoch, a.utcOffset)); werr != nil {
			a.logger.Warn("write fallback to rtc", "error", werr)
			persisted = false
		}
	})
	return locked && persisted
}

// RTCValid reads the RTC and reports whether it passes the sanity checks.
func (a *Authority) RTCValid() bool {
	var valid bool
	a.guard("rtc_valid", func() {
		dt, err := a.rtc.ReadDateTime()
		if err != nil {
			a.logger.Warn("read rtc", "error", err)
			return
		}
		if err := dt.Validate(); err != nil {
			a.logger.Debug("rtc reading rejected", "error", err, "rtc", dt.String())
			return
		}
		valid = true
	})
	return valid
}

// epochLocked reads the RTC. A failed or implausible read falls back to the
// last good reading extrapolated by elapsed ticks.
func (a *Authority) epochLocked() uint32 {
	now := a.clock.Now()
	dt, err := a.rtc.ReadDateTime()
	if err == nil {
		err = dt.Validate()
	}
	if err != nil {
		if a.lastGoodEpoch == 0 {
			a.logger.Warn("rtc unreadable and no previous reading", "error", err)
			return 0
		}
		elapsed := uint32(now.Sub(a.lastGoodTick) / time.Second)
		a.logger.Warn("rtc unreadable, extrapolating", "error", err, "last_good", a.lastGoodEpoch)
		return a.lastGoodEpoch + elapsed
	}
	epoch := toEpoch(dt, a.utcOffset)
	a.lastGoodEpoch, a.lastGoodTick = epoch, now
	return epoch
}

// Epoch is the current Unix time, read through to the RTC.
func (a *Authority) Epoch() uint32 {
	var epoch uint32
	a.guard("epoch", func() { epoch = a.epochLocked() })
	return epoch
}

// EpochDays is the number of whole days since the Unix epoch.
func (a *Authority) EpochDays() uint32 {
	return a.Epoch() / secondsPerDay
}

// SecondsSinceMidnight counts from the start of the current epoch day.
func (a *Authority) SecondsSinceMidnight() uint32 {
	epoch := a.Epoch()
	if epoch == 0 {
		return 0
	}
	return epoch - dayStart(epoch)
}

// IsMidnightCrossed reports true exactly once per day boundary. A clock that
// moved backwards to an earlier day re-arms the detector without firing.
func (a *Authority) IsMidnightCrossed() bool {
	var crossed bool
	a.guard("midnight", func() {
		epoch := a.epochLocked()
		if epoch == 0 {
			return
		}
		start := dayStart(epoch)
		switch {
		case a.lastMidnight == 0:
			a.lastMidnight = start
		case start > a.lastMidnight:
			a.lastMidnight = start
			crossed = true
			a.logger.Info("midnight crossed", "day", start/secondsPerDay)
		case start < a.lastMidnight:
			a.logger.Warn("clock moved to an earlier day", "day", start/secondsPerDay, "previous", a.lastMidnight/secondsPerDay)
			a.lastMidnight = start
		}
	})
	return crossed
}

// SyncNow asks the sync client for network time and, on success, writes it
// to the RTC and updates the drift estimate. The network exchange runs
// without holding the lock. A concurrent call returns false immediately.
func (a *Authority) SyncNow(ctx context.Context) bool {
	var busy bool
	if !a.guard("sync_begin", func() {
		busy = a.syncing
		if busy {
			return
		}
		a.syncing = true
		a.attempted = true
		a.lastAttempt = a.clock.Now()
	}) || busy {
		return false
	}

	ok := a.client.Update(ctx)
	epoch := a.client.EpochTime()

	var synced bool
	locked := a.guard("sync_end", func() {
		a.syncing = false
		if !ok {
			a.logger.Warn("time sync failed")
			return
		}
		if epoch < MinValidEpoch {
			a.logger.Warn("time sync returned implausible epoch", "epoch", epoch)
			return
		}

		now := a.clock.Now()
		if a.synced {
			a.updateDriftLocked(epoch, now)
		}
		if err := a.rtc.WriteDateTime(fromEpoch(epoch, a.utcOffset)); err != nil {
			a.logger.Warn("write synced time to rtc", "error", err)
			return
		}

		a.lastSyncEpoch, a.lastSyncTick = epoch, now
		a.lastGoodEpoch, a.lastGoodTick = epoch, now
		a.synced = true
		a.source = SourceNTP
		if a.lastMidnight == 0 {
			a.lastMidnight = dayStart(epoch)
		}
		a.logger.Info("time synced", "epoch", epoch, "drift_ppm", a.driftPPM)
		synced = true
	})
	if !locked {
		// the in-flight flag must not stay set
		_ = a.mu.Do(func() { a.syncing = false })
	}
	return synced
}

func (a *Authority) updateDriftLocked(epoch uint32, now time.Time) {
	elapsed := int64(now.Sub(a.lastSyncTick) / time.Second)
	if elapsed <= 0 {
		return
	}
	expected := int64(a.lastSyncEpoch) + elapsed
	deviation := int64(epoch) - expected

	if math.Abs(float64(deviation)) > driftResetThreshold {
		a.logger.Warn("clock jump, drift estimate reset", "deviation_sec", deviation)
		a.driftPPM = 0
		a.driftSamples = 0
		return
	}

	measured := float64(deviation) * 1e6 / float64(elapsed)
	if a.driftSamples == 0 {
		a.driftPPM = measured
	} else {
		a.driftPPM = a.driftPPM*driftOldWeight + measured*driftNewWeight
	}
	a.driftSamples++
	a.logger.Debug("drift updated", "ppm", a.driftPPM, "samples", a.driftSamples)
}

// Update syncs when the resync interval has elapsed since the last attempt,
// or immediately if no attempt has been made. It reports whether a sync
// succeeded during this call.
func (a *Authority) Update(ctx context.Context) bool {
	var due bool
	a.guard("update", func() {
		due = !a.syncing && (!a.attempted || a.clock.Now().Sub(a.lastAttempt) >= a.resyncInterval)
	})
	if !due {
		return false
	}
	return a.SyncNow(ctx)
}

// DriftPPM is the learned RTC drift in parts per million.
func (a *Authority) DriftPPM() float64 {
	var v float64
	a.guard("drift", func() { v = a.driftPPM })
	return v
}

func (a *Authority) Synced() bool {
	var v bool
	a.guard("synced", func() { v = a.synced })
	return v
}

func (a *Authority) LastSyncEpoch() uint32 {
	var v uint32
	a.guard("last_sync", func() { v = a.lastSyncEpoch })
	return v
}

func (a *Authority) Source() Source {
	var v Source
	a.guard("source", func() { v = a.source })
	return v
}

func (a *Authority) UTCOffset() int32 {
	var v int32
	a.guard("utc_offset", func() { v = a.utcOffset })
	return v
}

// SetUTCOffset changes the local zone. The RTC is rewritten so that the
// epoch it represents does not move.
func (a *Authority) SetUTCOffset(seconds int32) {
	a.guard("set_utc_offset", func() {
		if seconds == a.utcOffset {
			return
		}
		epoch := a.epochLocked()
		a.utcOffset = seconds
		if epoch == 0 {
			return
		}
		if err := a.rtc.WriteDateTime(fromEpoch(epoch, seconds)); err != nil {
			a.logger.Warn("rewrite rtc for new offset", "error", err)
		}
	})
}

// LocalTime is the current time in the configured fixed zone.
func (a *Authority) LocalTime() time.Time {
	var epoch uint32
	var offset int32
	a.guard("local_time", func() {
		epoch = a.epochLocked()
		offset = a.utcOffset
	})
	return time.Unix(int64(epoch), 0).In(time.FixedZone("", int(offset)))
}

// TimeString formats LocalTime as HH:MM:SS.
func (a *Authority) TimeString() string { return a.LocalTime().Format("15:04:05") }

// DateString formats LocalTime as YYYY-MM-DD.
func (a *Authority) DateString() string { return a.LocalTime().Format(time.DateOnly) }
