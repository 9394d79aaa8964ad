package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Days       int           `json:"days"`
	Totals     jsonTotals    `json:"totals"`
	History    []jsonDay     `json:"history"`
	Sessions   []jsonSession `json:"sessions,omitempty"`
}

type jsonTotals struct {
	Completed     int `json:"completed"`
	WorkMinutes   int `json:"work_minutes"`
	BreakMinutes  int `json:"break_minutes"`
	Interruptions int `json:"interruptions"`
}

type jsonDay struct {
	Date string `json:"date"`
	stats.DayStats
}

type jsonSession struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Kind      string `json:"kind"`
	Minutes   int    `json:"minutes"`
	Completed bool   `json:"completed"`
	EndedAt   string `json:"ended_at"`
}

// ToJSON writes day history plus, when given, the session log.
func ToJSON(days []stats.DayStats, sessions []store.SessionRecord, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Days:       len(days),
		Totals: jsonTotals{
			Completed:     lo.SumBy(days, func(d stats.DayStats) int { return int(d.CompletedSessions) }),
			WorkMinutes:   lo.SumBy(days, func(d stats.DayStats) int { return int(d.WorkMinutes) }),
			BreakMinutes:  lo.SumBy(days, func(d stats.DayStats) int { return int(d.BreakMinutes) }),
			Interruptions: lo.SumBy(days, func(d stats.DayStats) int { return int(d.Interruptions) }),
		},
		History: lo.Map(days, func(d stats.DayStats, _ int) jsonDay {
			return jsonDay{Date: DayDate(d.Day), DayStats: d}
		}),
		Sessions: lo.Map(sessions, func(r store.SessionRecord, _ int) jsonSession {
			return jsonSession{
				ID:        r.ID,
				Date:      DayDate(r.Day),
				Kind:      string(r.Kind),
				Minutes:   r.Minutes,
				Completed: r.Completed,
				EndedAt:   r.EndedAt.Local().Format(time.RFC3339),
			}
		}),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
