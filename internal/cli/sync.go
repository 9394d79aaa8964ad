package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/timeauth"
)

func syncCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the device clock over NTP once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := o.open(openOptions{console: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.NTPTimeout+rt.cfg.LockTimeout)
			defer cancel()
			if !rt.clock.SyncNow(ctx) {
				return errors.New("time sync failed")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Time: %s %s (source %s)\n", rt.clock.DateString(), rt.clock.TimeString(), rt.clock.Source())
			fmt.Fprintf(out, "Epoch: %d\n", rt.clock.Epoch())
			if c, ok := rt.sync.(*timeauth.NTPClient); ok {
				fmt.Fprintf(out, "Server: %s offset %s stratum %d\n", rt.cfg.NTPServer, c.Offset(), c.Stratum())
			}
			return nil
		},
	}
}
