// Package lock provides a mutex whose acquisition gives up after a bound.
package lock

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultTimeout bounds every acquisition unless overridden.
const DefaultTimeout = 100 * time.Millisecond

// ErrTimeout is returned when the lock was not acquired within the bound.
var ErrTimeout = errors.New("lock acquisition timed out")

// Mutex is a single-holder lock with a bounded wait. The zero value is not
// usable; construct with New.
type Mutex struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// New returns a Mutex that waits at most timeout. A non-positive timeout
// selects DefaultTimeout.
func New(timeout time.Duration) *Mutex {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Mutex{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Timeout reports the acquisition bound.
func (m *Mutex) Timeout() time.Duration { return m.timeout }

// Lock acquires the mutex or returns ErrTimeout.
func (m *Mutex) Lock() error {
	if m.sem.TryAcquire(1) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return ErrTimeout
	}
	return nil
}

// Unlock releases a mutex acquired by Lock.
func (m *Mutex) Unlock() { m.sem.Release(1) }

// Do runs fn while holding the mutex.
func (m *Mutex) Do(fn func()) error {
	if err := m.Lock(); err != nil {
		return err
	}
	defer m.Unlock()
	fn()
	return nil
}
