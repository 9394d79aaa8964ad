package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/tui"
)

func runCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the interactive timer (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.runTUI(cmd)
		},
	}
}

// runTUI logs to the log file only so the alt screen stays clean.
func (o *options) runTUI(cmd *cobra.Command) error {
	notices := make(chan device.Notice, 16)
	rt, err := o.open(openOptions{
		publish: true,
		notify: func(n device.Notice) {
			select {
			case notices <- n:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	rt.startSync(ctx)

	app := tui.NewApp(tui.Options{
		Device:  rt.dev,
		Store:   rt.store,
		Stats:   rt.stats,
		Clock:   rt.clock,
		Notices: notices,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
