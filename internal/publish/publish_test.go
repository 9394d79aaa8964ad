package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSession(t *testing.T) {
	ts := time.Date(2026, 2, 3, 10, 25, 0, 0, time.FixedZone("", 3600))
	raw, err := FormatSession(SessionEvent{Timestamp: ts, Kind: "work", Minutes: 25, Completed: true, CompletedToday: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session":{"timestamp":"2026-02-03T09:25:00Z","kind":"work","minutes":25,"completed":true,"completed_today":3}}`, string(raw))
}

func TestFormatDaily(t *testing.T) {
	raw, err := FormatDaily(DailySummary{
		Timestamp: time.Date(2026, 2, 4, 0, 0, 1, 0, time.UTC),
		Day:       20487, Date: "2026-02-03",
		Completed: 8, WorkMinutes: 200, BreakMinutes: 55, Interruptions: 1,
	})
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2026-02-03", got["daily"]["date"])
	assert.EqualValues(t, 8, got["daily"]["completed"])
	assert.EqualValues(t, 20487, got["daily"]["day"])
}

func TestFakeRecords(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.PublishSession(SessionEvent{Kind: "short_break", Minutes: 5, Completed: true}))
	require.NoError(t, f.PublishDaily(DailySummary{Day: 1}))
	assert.Equal(t, 1, f.SessionCount())
	assert.Len(t, f.DailyPayloads, 1)

	f.PublishError = errors.New("broker down")
	assert.Error(t, f.PublishSession(SessionEvent{}))
	assert.Equal(t, 1, f.SessionCount())

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	f.Reset()
	assert.Zero(t, f.SessionCount())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishSession(SessionEvent{}))
	assert.NoError(t, p.PublishDaily(DailySummary{}))
	assert.NoError(t, p.Close())
}

// pendingToken never completes, like a connect that keeps retrying.
type pendingToken struct {
	paho.Token
	err error
	ok  bool
}

func (tk pendingToken) WaitTimeout(time.Duration) bool { return tk.ok }
func (tk pendingToken) Error() error                   { return tk.err }

// stubClient answers Connect with a fixed token and records Disconnect.
type stubClient struct {
	paho.Client
	token         paho.Token
	disconnects   int
	disconnectArg uint
}

func (c *stubClient) Connect() paho.Token { return c.token }

func (c *stubClient) Disconnect(quiesce uint) {
	c.disconnects++
	c.disconnectArg = quiesce
}

func TestConnectTimeoutStopsRetrying(t *testing.T) {
	c := &stubClient{token: pendingToken{}}
	err := connect(c, time.Millisecond)
	require.ErrorIs(t, err, ErrConnectTimeout)
	assert.Equal(t, 1, c.disconnects)
	assert.Zero(t, c.disconnectArg)
}

func TestConnectSuccessKeepsClient(t *testing.T) {
	c := &stubClient{token: pendingToken{ok: true}}
	require.NoError(t, connect(c, time.Millisecond))
	assert.Zero(t, c.disconnects)
}

func TestConnectErrorWrapped(t *testing.T) {
	refused := errors.New("not authorized")
	c := &stubClient{token: pendingToken{ok: true, err: refused}}
	err := connect(c, time.Millisecond)
	require.ErrorIs(t, err, refused)
	assert.NotErrorIs(t, err, ErrConnectTimeout)
}
