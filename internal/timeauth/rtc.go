package timeauth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/pomotick/internal/store"
)

// RTCOffsetKey holds the HostRTC skew in the device bucket.
const RTCOffsetKey = "rtc_offset"

// HostRTC emulates a free-running calendar clock on a host without one. The
// reading is the host clock shifted by a skew; writes adjust the skew, which
// is persisted so the emulated clock survives restarts.
type HostRTC struct {
	mu     sync.Mutex
	kv     store.KV
	clock  Clock
	skew   time.Duration
	logger *slog.Logger
}

// NewHostRTC loads the persisted skew from kv. Without one, the clock starts
// on host local time at utcOffset so it reads like a wall clock set by hand.
func NewHostRTC(kv store.KV, clock Clock, utcOffset int32, logger *slog.Logger) (*HostRTC, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &HostRTC{
		kv:     kv,
		clock:  clock,
		skew:   time.Duration(utcOffset) * time.Second,
		logger: logger.With("component", "rtc"),
	}

	raw, err := kv.Get(RTCOffsetKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load rtc offset: %w", err)
	case len(raw) != 8:
		r.logger.Debug("ignoring malformed rtc offset", "len", len(raw))
	default:
		r.skew = time.Duration(int64(binary.LittleEndian.Uint64(raw))) * time.Second
	}
	return r, nil
}

func (r *HostRTC) ReadDateTime() (DateTime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.clock.Now().Add(r.skew).UTC()
	return DateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}, nil
}

func (r *HostRTC) WriteDateTime(dt DateTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC)
	skew := target.Sub(r.clock.Now().Truncate(time.Second)).Round(time.Second)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(skew/time.Second)))
	if err := r.kv.Put(RTCOffsetKey, buf[:]); err != nil {
		return fmt.Errorf("save rtc offset: %w", err)
	}
	r.skew = skew
	return nil
}

// MemoryRTC is an in-memory RTC. With a Clock it advances with that clock,
// otherwise it holds the last written value. ReadErr and WriteErr inject
// failures.
type MemoryRTC struct {
	mu       sync.Mutex
	value    DateTime
	at       time.Time
	clock    Clock
	ReadErr  error
	WriteErr error
	Writes   []DateTime
}

func NewMemoryRTC(initial DateTime, clock Clock) *MemoryRTC {
	r := &MemoryRTC{value: initial, clock: clock}
	if clock != nil {
		r.at = clock.Now()
	}
	return r
}

func (r *MemoryRTC) ReadDateTime() (DateTime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ReadErr != nil {
		return DateTime{}, r.ReadErr
	}
	if r.clock == nil || r.value.Validate() != nil {
		return r.value, nil
	}
	elapsed := r.clock.Now().Sub(r.at)
	base := time.Date(r.value.Year, r.value.Month, r.value.Day, r.value.Hour, r.value.Minute, r.value.Second, 0, time.UTC)
	t := base.Add(elapsed)
	return DateTime{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (r *MemoryRTC) WriteDateTime(dt DateTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WriteErr != nil {
		return r.WriteErr
	}
	r.value = dt
	r.Writes = append(r.Writes, dt)
	if r.clock != nil {
		r.at = r.clock.Now()
	}
	return nil
}
