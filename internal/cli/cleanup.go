package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/stats"
)

func cleanupCmd(o *options) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove statistics and log rows older than 90 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := o.open(openOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if reset {
				rt.stats.Clear()
				fmt.Fprintln(out, "Cleared all statistics")
				return nil
			}

			removed := rt.stats.Cleanup()
			var pruned int64
			if today := rt.clock.EpochDays(); today > stats.WindowDays {
				if pruned, err = rt.store.PruneSessions(today - stats.WindowDays); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "Removed %d day records and %d log rows\n", removed, pruned)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all statistics instead")
	return cmd
}
