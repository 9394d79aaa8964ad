package timeauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pomotick/internal/store"
)

func TestHostRTCPersistsSkew(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	kv := s.Bucket("device")

	clk := NewMockClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rtc, err := NewHostRTC(kv, clk, 3600, nil)
	require.NoError(t, err)

	dt, err := rtc.ReadDateTime()
	require.NoError(t, err)
	assert.Equal(t, 11, dt.Hour, "starts on local time")

	want := DateTime{Year: 2026, Month: time.March, Day: 1, Hour: 9, Minute: 30}
	require.NoError(t, rtc.WriteDateTime(want))

	reopened, err := NewHostRTC(kv, clk, 3600, nil)
	require.NoError(t, err)
	got, err := reopened.ReadDateTime()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	clk.Advance(90 * time.Second)
	got, err = reopened.ReadDateTime()
	require.NoError(t, err)
	assert.Equal(t, 31, got.Minute)
	assert.Equal(t, 30, got.Second)
}

func TestAuthorityOverHostRTC(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clk := NewMockClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rtc, err := NewHostRTC(s.Bucket("device"), clk, 0, nil)
	require.NoError(t, err)
	client := &FakeSyncClient{Epoch: 1772400000}

	a := New(rtc, client, WithClock(clk))
	require.True(t, a.Begin(0))
	require.True(t, a.SyncNow(t.Context()))
	assert.Equal(t, uint32(1772400000), a.Epoch())
	assert.Equal(t, SourceNTP, a.Source())
}
