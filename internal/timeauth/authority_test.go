package timeauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june1 = DateTime{Year: 2025, Month: time.June, Day: 1, Hour: 12}

func newAuthority(t *testing.T, initial DateTime, opts ...Option) (*Authority, *MemoryRTC, *FakeSyncClient, *MockClock) {
	t.Helper()
	clk := NewMockClock(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	rtc := NewMemoryRTC(initial, clk)
	client := &FakeSyncClient{}
	a := New(rtc, client, append([]Option{WithClock(clk)}, opts...)...)
	return a, rtc, client, clk
}

func TestBeginWithValidRTC(t *testing.T) {
	a, rtc, _, _ := newAuthority(t, june1)
	require.True(t, a.Begin(0))
	assert.True(t, a.RTCValid())
	assert.Equal(t, SourceRTC, a.Source())
	assert.Equal(t, toEpoch(june1, 0), a.Epoch())
	assert.Empty(t, rtc.Writes)
}

func TestBeginSeedsFallback(t *testing.T) {
	a, rtc, _, _ := newAuthority(t, DateTime{Year: 2000, Month: time.January, Day: 1})
	assert.False(t, a.RTCValid())

	require.True(t, a.Begin(0))
	assert.Equal(t, SourceFallback, a.Source())
	require.Len(t, rtc.Writes, 1)
	assert.Equal(t, DefaultEpoch, a.Epoch())
	assert.True(t, a.RTCValid())
}

func TestBeginFallbackWriteFails(t *testing.T) {
	a, rtc, _, _ := newAuthority(t, DateTime{Year: 1999, Month: time.March, Day: 3})
	rtc.WriteErr = errors.New("i2c nack")
	assert.False(t, a.Begin(0))
	assert.Equal(t, SourceFallback, a.Source())
}

func TestOffsetAppliedBothWays(t *testing.T) {
	const offset = 3 * 3600
	a, rtc, client, _ := newAuthority(t, june1)
	require.True(t, a.Begin(offset))
	assert.Equal(t, toEpoch(june1, 0)-offset, a.Epoch())

	client.Epoch = 1750000000
	require.True(t, a.SyncNow(context.Background()))
	assert.Equal(t, fromEpoch(1750000000, offset), rtc.Writes[0])
	assert.Equal(t, uint32(1750000000), a.Epoch())
}

func TestSyncRejectsImplausibleEpoch(t *testing.T) {
	a, rtc, client, _ := newAuthority(t, june1)
	require.True(t, a.Begin(0))

	client.Epoch = 0
	assert.False(t, a.SyncNow(context.Background()))
	client.Epoch = 1000
	assert.False(t, a.SyncNow(context.Background()))
	client.Fail = true
	client.Epoch = 1750000000
	assert.False(t, a.SyncNow(context.Background()))

	assert.False(t, a.Synced())
	assert.Equal(t, SourceRTC, a.Source())
	assert.Empty(t, rtc.Writes)
}

func TestDriftLearning(t *testing.T) {
	a, _, client, clk := newAuthority(t, june1)
	require.True(t, a.Begin(0))
	e0 := uint32(1750000000)

	client.Epoch = e0
	require.True(t, a.SyncNow(context.Background()))
	assert.Zero(t, a.DriftPPM())

	clk.Advance(time.Hour)
	client.Epoch = e0 + 3600 + 1
	require.True(t, a.SyncNow(context.Background()))
	assert.InDelta(t, 1e6/3600.0, a.DriftPPM(), 0.01)

	clk.Advance(time.Hour)
	client.Epoch = e0 + 7200 + 1 + 2
	require.True(t, a.SyncNow(context.Background()))
	want := 0.8*(1e6/3600.0) + 0.2*(2e6/3600.0)
	assert.InDelta(t, want, a.DriftPPM(), 0.01)
	assert.Equal(t, client.Epoch, a.LastSyncEpoch())
}

func TestDriftResetOnJump(t *testing.T) {
	a, _, client, clk := newAuthority(t, june1)
	require.True(t, a.Begin(0))
	e0 := uint32(1750000000)

	client.Epoch = e0
	require.True(t, a.SyncNow(context.Background()))
	clk.Advance(time.Hour)
	client.Epoch = e0 + 3601
	require.True(t, a.SyncNow(context.Background()))
	require.NotZero(t, a.DriftPPM())

	clk.Advance(time.Hour)
	client.Epoch = e0 + 7201 + 11
	require.True(t, a.SyncNow(context.Background()))
	assert.Zero(t, a.DriftPPM())
}

func TestSyncRunsOutsideLock(t *testing.T) {
	a, _, client, _ := newAuthority(t, june1, WithLockTimeout(10*time.Millisecond))
	require.True(t, a.Begin(0))

	var during uint32
	client.Hook = func() { during = a.Epoch() }
	client.Epoch = 1750000000
	require.True(t, a.SyncNow(context.Background()))
	assert.Equal(t, toEpoch(june1, 0), during)
}

func TestMidnightDetection(t *testing.T) {
	a, rtc, _, clk := newAuthority(t, DateTime{Year: 2025, Month: time.June, Day: 1, Hour: 23, Minute: 59, Second: 50})
	require.True(t, a.Begin(0))
	startDay := a.EpochDays()

	assert.False(t, a.IsMidnightCrossed())
	clk.Advance(5 * time.Second)
	assert.False(t, a.IsMidnightCrossed())
	clk.Advance(10 * time.Second)
	assert.True(t, a.IsMidnightCrossed())
	assert.False(t, a.IsMidnightCrossed())
	assert.Equal(t, startDay+1, a.EpochDays())
	assert.Equal(t, uint32(5), a.SecondsSinceMidnight())

	// a clock set back a day re-arms without firing
	require.NoError(t, rtc.WriteDateTime(DateTime{Year: 2025, Month: time.June, Day: 1, Hour: 23, Minute: 59, Second: 59}))
	assert.False(t, a.IsMidnightCrossed())
	clk.Advance(2 * time.Second)
	assert.True(t, a.IsMidnightCrossed())
}

func TestUpdateRespectsInterval(t *testing.T) {
	a, _, client, clk := newAuthority(t, june1, WithResyncInterval(time.Hour))
	require.True(t, a.Begin(0))
	client.Epoch = 1750000000
	ctx := context.Background()

	assert.True(t, a.Update(ctx))
	assert.False(t, a.Update(ctx))
	assert.Equal(t, 1, client.CallCount())

	clk.Advance(59 * time.Minute)
	assert.False(t, a.Update(ctx))
	clk.Advance(time.Minute)
	client.Fail = true
	assert.False(t, a.Update(ctx))
	assert.Equal(t, 2, client.CallCount())

	// a failure waits for the next interval
	assert.False(t, a.Update(ctx))
	assert.Equal(t, 2, client.CallCount())
	clk.Advance(time.Hour)
	client.Fail = false
	client.Epoch = 1750007200
	assert.True(t, a.Update(ctx))
}

func TestRTCReadFailureExtrapolates(t *testing.T) {
	a, rtc, _, clk := newAuthority(t, june1)
	require.True(t, a.Begin(0))
	base := a.Epoch()

	rtc.ReadErr = errors.New("bus error")
	clk.Advance(10 * time.Second)
	assert.Equal(t, base+10, a.Epoch())
	assert.False(t, a.RTCValid())
}

func TestSetUTCOffsetKeepsEpoch(t *testing.T) {
	a, _, _, _ := newAuthority(t, june1)
	require.True(t, a.Begin(0))
	before := a.Epoch()

	a.SetUTCOffset(-5 * 3600)
	assert.Equal(t, int32(-5*3600), a.UTCOffset())
	assert.Equal(t, before, a.Epoch())
	assert.Equal(t, "07:00:00", a.TimeString())
	assert.Equal(t, "2025-06-01", a.DateString())
}

func TestDateTimeValidate(t *testing.T) {
	assert.NoError(t, june1.Validate())
	assert.Error(t, DateTime{Year: 2025, Month: 13, Day: 1}.Validate())
	assert.Error(t, DateTime{Year: 2025, Month: 1, Day: 0}.Validate())
	assert.Error(t, DateTime{Year: 2019, Month: 12, Day: 31}.Validate())
}

func TestEpochConversionRoundTrip(t *testing.T) {
	for _, offset := range []int32{0, 3600, -28800, 19800} {
		e := uint32(1735689600 + 12345)
		assert.Equal(t, e, toEpoch(fromEpoch(e, offset), offset), "offset %d", offset)
	}
	assert.Equal(t, DefaultEpoch, toEpoch(DateTime{Year: 2025, Month: time.January, Day: 1}, 0))
}
