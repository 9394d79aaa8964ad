package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultTimeout, m.Timeout())
	require.NoError(t, m.Lock())
	m.Unlock()
	require.NoError(t, m.Lock())
	m.Unlock()
}

func TestLockTimesOut(t *testing.T) {
	m := New(20 * time.Millisecond)
	require.NoError(t, m.Lock())
	defer m.Unlock()

	start := time.Now()
	err := m.Lock()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestDoSerializes(t *testing.T) {
	m := New(time.Second)
	var wg sync.WaitGroup
	counter := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Do(func() { counter++ }))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
