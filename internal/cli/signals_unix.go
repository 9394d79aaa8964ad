//go:build unix

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sadopc/pomotick/internal/timer"
)

var controlEvents = map[os.Signal]timer.Event{
	syscall.SIGUSR1: timer.EventStart,
	syscall.SIGUSR2: timer.EventSkip,
	syscall.SIGHUP:  timer.EventStop,
}

func controlSignals(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP)
}
