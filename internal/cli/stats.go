package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomotick/internal/export"
	"github.com/sadopc/pomotick/internal/stats"
)

func statsCmd(o *options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 || days > stats.WindowDays {
				return fmt.Errorf("--days must be between 1 and %d", stats.WindowDays)
			}
			rt, err := o.open(openOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			today := rt.stats.Today()
			fmt.Fprintf(out, "Today (%s): %d completed, %d min work, %d min break, %d interrupted\n",
				export.DayDate(today.Day), today.CompletedSessions, today.WorkMinutes, today.BreakMinutes, today.Interruptions)
			fmt.Fprintf(out, "Last 7 days: %d  Last 30 days: %d  Last %d days: %d\n",
				rt.stats.Last7DaysTotal(), rt.stats.Last30DaysTotal(), stats.WindowDays, rt.stats.TotalCompleted())
			fmt.Fprintf(out, "Completion rate (30 days): %.1f%%\n\n", rt.stats.CompletionRate())
			fmt.Fprintln(out, renderDays(rt.stats.LastNDays(days)))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days to list")
	return cmd
}

func renderDays(days []stats.DayStats) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Date", "Completed", "Work (min)", "Break (min)", "Interrupted")
	for _, d := range days {
		t.Row(
			export.DayDate(d.Day),
			strconv.Itoa(int(d.CompletedSessions)),
			strconv.Itoa(int(d.WorkMinutes)),
			strconv.Itoa(int(d.BreakMinutes)),
			strconv.Itoa(int(d.Interruptions)),
		)
	}
	return t.Render()
}
