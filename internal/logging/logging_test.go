package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	var console, file bytes.Buffer
	l := New(WithConsole(&console), WithWriter(&file))
	l.Info("session complete", "component", "device", "minutes", 25)

	assert.Contains(t, console.String(), "session complete")
	assert.Contains(t, file.String(), "minutes=25")
}

func TestQuietKeepsFile(t *testing.T) {
	var console, file bytes.Buffer
	l := New(WithConsole(&console), WithWriter(&file), WithQuiet())
	l.Warn("rtc invalid")

	assert.Empty(t, console.String())
	assert.Contains(t, file.String(), "rtc invalid")
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(WithConsole(&buf)).Debug("hidden")
	assert.Empty(t, buf.String())

	New(WithConsole(&buf), WithDebug()).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(WithConsole(&buf), WithFormat("json")).Info("synced", "epoch", 1750000000)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "synced", rec["msg"])
	assert.EqualValues(t, 1750000000, rec["epoch"])
}

func TestNoDestinationDiscards(t *testing.T) {
	l := New(WithQuiet())
	assert.False(t, l.Enabled(t.Context(), 12))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pomotick.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	l := New(WithQuiet(), WithWriter(f))
	l.Info("hello")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
