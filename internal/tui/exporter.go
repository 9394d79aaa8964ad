package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/export"
	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
)

type exportFormat int

const (
	formatCSV exportFormat = iota
	formatJSON
	formatCount
)

func (f exportFormat) ext() string {
	if f == formatJSON {
		return "json"
	}
	return "csv"
}

// exportPicker is the modal that writes the statistics window to disk.
type exportPicker struct {
	open   bool
	choice exportFormat
	dir    string
	store  *store.Store
	stats  *stats.Store
}

func newExportPicker(dir string, s *store.Store, st *stats.Store) exportPicker {
	return exportPicker{dir: dir, store: s, stats: st}
}

func (p exportPicker) show() exportPicker {
	p.open = true
	p.choice = formatCSV
	return p
}

func (p exportPicker) update(msg tea.KeyMsg) (exportPicker, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		p.choice = (p.choice + formatCount - 1) % formatCount
	case key.Matches(msg, keys.Down), key.Matches(msg, keys.Tab):
		p.choice = (p.choice + 1) % formatCount
	case key.Matches(msg, keys.Enter):
		p.open = false
		return p, p.write(p.choice)
	case key.Matches(msg, keys.Back):
		p.open = false
	}
	return p, nil
}

func (p exportPicker) view(width int) string {
	choices := make([]string, 0, formatCount)
	for f := range formatCount {
		label := strings.ToUpper(f.ext())
		if f == p.choice {
			choices = append(choices, selectedItemStyle.Render("["+label+"]"))
		} else {
			choices = append(choices, normalItemStyle.Render(" "+label+" "))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Export the last %d days", stats.WindowDays)),
		"",
		strings.Join(choices, "  "),
		"",
		mutedStyle.Render("j/k choose · enter write · esc cancel"),
	)
	return activePanelStyle.Width(max(width-4, 20)).Render(body)
}

// write runs off the update loop and reports through a message.
func (p exportPicker) write(f exportFormat) tea.Cmd {
	return func() tea.Msg {
		dir := p.dir
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		name := fmt.Sprintf("pomotick-%s.%s", time.Now().Format(time.DateOnly), f.ext())
		path := filepath.Join(dir, name)
		days := p.stats.LastNDays(stats.WindowDays)

		var err error
		switch f {
		case formatJSON:
			var sessions []store.SessionRecord
			if sessions, err = p.store.ListSessions(store.SessionFilter{}); err == nil {
				err = export.ToJSON(days, sessions, path)
			}
		default:
			err = export.DaysToCSV(days, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("export %s: %v", f.ext(), err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
