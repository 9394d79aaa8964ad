package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pomotick/internal/config"
	"github.com/sadopc/pomotick/internal/sequence"
	"github.com/sadopc/pomotick/internal/timeauth"
	"github.com/sadopc/pomotick/internal/timer"
)

type testEnv struct {
	dir        string
	configPath string
	sync       *timeauth.FakeSyncClient
}

// newTestEnv writes a config that keeps every file inside a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "pomotick.db")
	cfg.LogFile = filepath.Join(dir, "pomotick.log")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return &testEnv{dir: dir, configPath: path, sync: &timeauth.FakeSyncClient{Epoch: 1750000000}}
}

func (e *testEnv) options() *options {
	return &options{
		configPath: e.configPath,
		newSyncClient: func(config.Config, *slog.Logger) timeauth.SyncClient {
			return e.sync
		},
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(e.options())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"run", "headless", "stats", "export", "sync", "cleanup", "config"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "db", "debug"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	env := &testEnv{configPath: filepath.Join(dir, "sub", "config.yaml"), sync: &timeauth.FakeSyncClient{}}

	out, err := env.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, env.configPath)

	_, err = env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = env.run(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = env.run(t, "config", "show", "--db", "/tmp/elsewhere.db")
	require.NoError(t, err)
	assert.Contains(t, out, "db_path: /tmp/elsewhere.db")
	assert.Contains(t, out, "ntp_server: pool.ntp.org")
}

func TestConfigInvalidFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte("log_format: xml\n"), 0o644))
	_, err := env.run(t, "stats")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "stats", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Today (")
	assert.Contains(t, out, "Completion rate")
	assert.Contains(t, out, "Interrupted")
	assert.FileExists(t, filepath.Join(env.dir, "pomotick.db"))

	_, err = env.run(t, "stats", "--days", "0")
	require.Error(t, err)
}

func TestExportCSVAndJSON(t *testing.T) {
	env := newTestEnv(t)

	csvPath := filepath.Join(env.dir, "days.csv")
	out, err := env.run(t, "export", "-o", csvPath, "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, csvPath)
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(string(raw), "\n"))

	jsonPath := filepath.Join(env.dir, "days.json")
	_, err = env.run(t, "export", "--format", "JSON", "-o", jsonPath, "--sessions")
	require.NoError(t, err)
	raw, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"days": 90`)

	sessPath := filepath.Join(env.dir, "log.csv")
	_, err = env.run(t, "export", "-o", sessPath, "--sessions")
	require.NoError(t, err)
	raw, err = os.ReadFile(sessPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "ID,Date,Kind"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "export", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSync(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "source ntp")
	assert.Contains(t, out, "Epoch: 17500000")
	assert.Equal(t, 1, env.sync.CallCount())
}

func TestSyncFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sync.Fail = true
	_, err := env.run(t, "sync")
	require.EqualError(t, err, "time sync failed")
}

func TestCleanup(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 day records and 0 log rows")

	out, err = env.run(t, "cleanup", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared all statistics")
}

func TestRunLoopTicksAndShutsDown(t *testing.T) {
	env := newTestEnv(t)
	rt, err := env.options().open(openOptions{})
	require.NoError(t, err)
	defer rt.Close()

	require.True(t, rt.dev.Handle(timer.EventStart))

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tick := make(chan time.Time)
	sig := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- runLoop(rt.dev, rt.logger, clock, tick, sig) }()

	tick <- now
	now = now.Add(10 * time.Minute)
	tick <- now
	now = now.Add(15 * time.Minute)
	tick <- now
	sig <- os.Interrupt

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return")
	}

	v := rt.dev.View()
	assert.Equal(t, uint8(1), v.CompletedToday)
	assert.Equal(t, sequence.ShortBreak, v.Session.Type)
}

func TestCloseWaitsForInFlightSync(t *testing.T) {
	env := newTestEnv(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	env.sync.Hook = func() {
		close(entered)
		<-release
	}

	rt, err := env.options().open(openOptions{})
	require.NoError(t, err)
	rt.startSync(context.Background())

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("sync did not start")
	}

	closed := make(chan struct{})
	go func() {
		rt.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a sync was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the sync finished")
	}
	// the synced time reached the RTC before the store closed
	assert.True(t, rt.clock.Synced())
}
