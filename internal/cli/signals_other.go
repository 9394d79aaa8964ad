//go:build !unix

package cli

import (
	"os"

	"github.com/sadopc/pomotick/internal/timer"
)

var controlEvents = map[os.Signal]timer.Event{}

func controlSignals(chan<- os.Signal) {}
