package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/export"
	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
)

func exportCmd(o *options) *cobra.Command {
	var (
		format   string
		days     int
		output   string
		sessions bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export statistics as CSV or JSON",
		Long: `Export day statistics as CSV or JSON.

With --sessions, CSV output lists the session log instead of days and JSON
output includes the session log alongside the days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
			if days < 1 || days > stats.WindowDays {
				return fmt.Errorf("--days must be between 1 and %d", stats.WindowDays)
			}
			if output == "" {
				output = "pomotick-export." + format
			}

			rt, err := o.open(openOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			history := rt.stats.LastNDays(days)
			var log []store.SessionRecord
			if sessions {
				var from uint32
				if today := rt.clock.EpochDays(); today >= uint32(days) {
					from = today - uint32(days) + 1
				}
				if log, err = rt.store.ListSessions(store.SessionFilter{FromDay: from}); err != nil {
					return err
				}
			}

			switch {
			case format == "json":
				err = export.ToJSON(history, log, output)
			case sessions:
				err = export.SessionsToCSV(log, output)
			default:
				err = export.DaysToCSV(history, output)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().IntVar(&days, "days", stats.WindowDays, "number of days to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default pomotick-export.<format>)")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "include the session log")
	return cmd
}
