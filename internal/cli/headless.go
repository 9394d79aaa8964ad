package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/timer"
)

func headlessCmd(o *options) *cobra.Command {
	var autostart bool
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run without a UI, driven by signals",
		Long: `Run the timer without a terminal UI, for single-board deployments.

SIGUSR1 starts, pauses or resumes the session. SIGUSR2 skips it and SIGHUP
stops it. SIGINT or SIGTERM shuts down after saving state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var logger *slog.Logger
			rt, err := o.open(openOptions{
				console: cmd.ErrOrStderr(),
				publish: true,
				notify:  func(n device.Notice) { logNotice(logger, n) },
			})
			if err != nil {
				return err
			}
			defer rt.Close()
			logger = rt.logger

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			rt.startSync(ctx)

			if autostart {
				rt.dev.Handle(timer.EventStart)
			}

			ticker := time.NewTicker(rt.cfg.TickInterval)
			defer ticker.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			controlSignals(sigCh)
			defer signal.Stop(sigCh)

			rt.logger.Info("headless started", "tick", rt.cfg.TickInterval, "status", rt.dev.Status())
			return runLoop(rt.dev, rt.logger, time.Now, ticker.C, sigCh)
		},
	}
	cmd.Flags().BoolVar(&autostart, "autostart", false, "start the current session immediately")
	return cmd
}

func logNotice(logger *slog.Logger, n device.Notice) {
	if logger == nil {
		return
	}
	switch n.Kind {
	case device.NoticeCompleted:
		logger.Info("session completed", "session", n.Session.Type.String(), "minutes", n.Session.Minutes)
	case device.NoticeWarning:
		logger.Info("session ending soon", "session", n.Session.Type.String())
	case device.NoticeInterrupted:
		logger.Info("work session interrupted", "number", n.Session.Number)
	case device.NoticeMidnight:
		logger.Info("new day")
	}
}

// runLoop feeds wall-clock deltas to the device on every tick and maps
// control signals to timer events until a shutdown signal arrives.
func runLoop(dev *device.Device, logger *slog.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	last := now()
	for {
		select {
		case s := <-sig:
			if ev, ok := signalEvent(s); ok {
				var accepted bool
				if ev == timer.EventStart {
					accepted = dev.Toggle()
				} else {
					accepted = dev.Handle(ev)
				}
				logger.Info("control signal", "signal", s.String(), "event", ev.String(), "accepted", accepted, "status", dev.Status())
				continue
			}
			logger.Info("shutting down", "signal", s.String())
			return nil

		case <-tick:
			t := now()
			if delta := t.Sub(last); delta > 0 {
				dev.Tick(delta)
			}
			last = t
		}
	}
}

// signalEvent maps a control signal to a timer event. Start doubles as
// pause and resume, depending on the current state.
func signalEvent(s os.Signal) (timer.Event, bool) {
	ev, ok := controlEvents[s]
	return ev, ok
}
