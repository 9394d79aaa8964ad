package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
)

// historyDays is how far back the session log view reaches.
const historyDays = 7

type historyModel struct {
	store  *store.Store
	days   stats.DayClock
	width  int
	height int

	rows   []store.SessionRecord // newest first
	cursor int
}

func newHistoryModel(s *store.Store, days stats.DayClock) historyModel {
	return historyModel{store: s, days: days}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	rows []store.SessionRecord
	err  error
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		var from uint32
		if today := h.days.EpochDays(); today >= historyDays {
			from = today - historyDays + 1
		}
		rows, err := h.store.ListSessions(store.SessionFilter{FromDay: from})
		slices.Reverse(rows)
		return historyDataMsg{rows: rows, err: err}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return h, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("History error: %v", msg.err), isError: true}
			}
		}
		h.rows = msg.rows
		h.cursor = min(h.cursor, max(len(h.rows)-1, 0))
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.rows)-1 {
				h.cursor++
			}
		}
	}
	return h, nil
}

func kindLabel(k store.SessionKind) string {
	switch k {
	case store.KindShortBreak:
		return "short break"
	case store.KindLongBreak:
		return "long break"
	}
	return "work"
}

func (h historyModel) view() string {
	w := h.width - 4
	title := titleStyle.Render("Session log")

	if len(h.rows) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render(fmt.Sprintf("  No sessions in the last %d days", historyDays))))
	}

	visible := max(h.height-8, 5)
	start := 0
	if h.cursor >= visible {
		start = h.cursor - visible + 1
	}
	end := min(start+visible, len(h.rows))

	var rows []string
	rows = append(rows, title, "")
	for i := start; i < end; i++ {
		r := h.rows[i]
		mark := successStyle.Render("✓")
		if !r.Completed {
			mark = errorStyle.Render("✗")
		}
		line := fmt.Sprintf("%s  %-12s %5s  %s",
			r.EndedAt.Local().Format("Mon 15:04"), kindLabel(r.Kind), formatMinutes(r.Minutes), mark)

		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+line))
	}
	rows = append(rows, "", mutedStyle.Render(fmt.Sprintf("  %d sessions · ↑/↓: scroll", len(h.rows))))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
