package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/sequence"
	"github.com/sadopc/pomotick/internal/timer"
)

// timerModel is the main screen: countdown, session label and cycle dots.
type timerModel struct {
	dev    *device.Device
	clock  Clock
	width  int
	height int
	bar    progress.Model
}

func newTimerModel(dev *device.Device, clock Clock) timerModel {
	return timerModel{
		dev:   dev,
		clock: clock,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
	t.bar.Width = max(w-16, 10)
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	switch {
	case key.Matches(km, keys.Toggle):
		t.dev.Toggle()
	case key.Matches(km, keys.Stop):
		if t.dev.Handle(timer.EventStop) {
			return t, statusCmd("Session stopped")
		}
	case key.Matches(km, keys.Skip):
		if t.dev.Handle(timer.EventSkip) {
			return t, statusCmd("Session skipped")
		}
	}
	return t, nil
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func sessionLabel(s sequence.Session) string {
	switch s.Type {
	case sequence.ShortBreak:
		return "SHORT BREAK"
	case sequence.LongBreak:
		return "LONG BREAK"
	}
	return "WORK"
}

func (t timerModel) view() string {
	w := t.width - 4
	v := t.dev.View()

	remaining := v.Remaining
	if v.State == timer.Idle {
		remaining = v.Session.Duration()
	}

	style := statusStyle(v.Status)

	title := titleStyle.Render(fmt.Sprintf("Pomodoro · %s", v.Mode))
	clock := mutedStyle.Render(t.clock.TimeString())
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", clock)

	label := style.Render(sessionLabel(v.Session))
	if v.Status == device.StatusPaused {
		label = style.Render(sessionLabel(v.Session) + " · PAUSED")
	}

	next := mutedStyle.Render(fmt.Sprintf("Next: %s (%d min)", strings.ToLower(sessionLabel(v.Next)), v.Next.Minutes))
	today := subtitleStyle.Render(fmt.Sprintf("Completed today: %d", v.CompletedToday))

	content := lipgloss.JoinVertical(lipgloss.Center,
		header,
		"",
		style.Width(w-6).Render(formatClock(remaining)),
		label,
		"",
		t.bar.ViewAs(float64(v.Progress)/100),
		"",
		renderCycle(v),
		"",
		next,
		today,
	)

	var controls string
	switch v.State {
	case timer.Idle:
		controls = mutedStyle.Render("space: start  n: skip  q: quit")
	case timer.Active:
		controls = mutedStyle.Render("space: pause  x: stop  n: skip")
	case timer.Paused:
		controls = mutedStyle.Render("space: resume  x: stop  n: skip")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

// renderCycle draws one dot per work session in the cycle.
func renderCycle(v device.View) string {
	total := int(v.SessionsPerCycle)
	current := int(v.WorkSession)
	onWork := v.Session.Type == sequence.Work

	var parts []string
	for i := 1; i <= total; i++ {
		switch {
		case i < current || (i == current && !onWork):
			parts = append(parts, successStyle.Render("●"))
		case i == current && v.State != timer.Idle:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", current, total))
	return strings.Join(parts, " ") + counter
}
