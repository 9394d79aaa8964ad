//go:build unix

package cli

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pomotick/internal/device"
)

func TestRunLoopControlSignals(t *testing.T) {
	env := newTestEnv(t)
	rt, err := env.options().open(openOptions{})
	require.NoError(t, err)
	defer rt.Close()

	tick := make(chan time.Time)
	sig := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- runLoop(rt.dev, rt.logger, time.Now, tick, sig) }()

	sig <- syscall.SIGUSR1
	sig <- syscall.SIGUSR1
	sig <- syscall.SIGTERM
	require.NoError(t, <-done)
	assert.Equal(t, device.StatusPaused, rt.dev.Status())

	go func() { done <- runLoop(rt.dev, rt.logger, time.Now, tick, sig) }()
	sig <- syscall.SIGHUP
	sig <- syscall.SIGTERM
	require.NoError(t, <-done)
	assert.Equal(t, device.StatusIdle, rt.dev.Status())
}

func TestSignalEventMapping(t *testing.T) {
	_, ok := signalEvent(syscall.SIGUSR2)
	assert.True(t, ok)
	_, ok = signalEvent(syscall.SIGTERM)
	assert.False(t, ok)
}
