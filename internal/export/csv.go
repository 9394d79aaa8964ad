package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
)

// DaysToCSV writes one row per day, newest first as given.
func DaysToCSV(days []stats.DayStats, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Day", "Completed", "Work (min)", "Work", "Break (min)", "Interruptions"}); err != nil {
		return err
	}

	for _, d := range days {
		row := []string{
			DayDate(d.Day),
			strconv.FormatUint(uint64(d.Day), 10),
			strconv.Itoa(int(d.CompletedSessions)),
			strconv.Itoa(int(d.WorkMinutes)),
			formatMinutes(int(d.WorkMinutes)),
			strconv.Itoa(int(d.BreakMinutes)),
			strconv.Itoa(int(d.Interruptions)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// SessionsToCSV writes the session log.
func SessionsToCSV(rows []store.SessionRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Date", "Kind", "Minutes", "Completed", "Ended"}); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			DayDate(r.Day),
			string(r.Kind),
			strconv.Itoa(r.Minutes),
			strconv.FormatBool(r.Completed),
			r.EndedAt.Local().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// DayDate renders an epoch day as YYYY-MM-DD.
func DayDate(day uint32) string {
	return time.Unix(int64(day)*86400, 0).UTC().Format(time.DateOnly)
}

func formatMinutes(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
