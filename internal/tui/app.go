package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
	"github.com/sadopc/pomotick/internal/timeauth"
)

// Clock is what the shell shows about device time.
type Clock interface {
	EpochDays() uint32
	TimeString() string
	Source() timeauth.Source
	DriftPPM() float64
}

// Options are the collaborators of the App.
type Options struct {
	Device  *device.Device
	Store   *store.Store
	Stats   *stats.Store
	Clock   Clock
	Notices <-chan device.Notice
	// ExportDir receives export files; empty means the home directory.
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	dev      *device.Device
	notices  <-chan device.Notice
	width    int
	height   int
	lastTick time.Time

	activeView viewState
	showHelp   bool
	picker     exportPicker

	timer    timerModel
	statsV   statsModel
	history  historyModel
	settings settingsModel

	help   help.Model
	status string
}

func NewApp(o Options) App {
	h := help.New()
	h.ShowAll = false

	return App{
		dev:        o.Device,
		notices:    o.Notices,
		lastTick:   time.Now(),
		activeView: viewTimer,
		picker:     newExportPicker(o.ExportDir, o.Store, o.Stats),
		timer:      newTimerModel(o.Device, o.Clock),
		statsV:     newStatsModel(o.Stats),
		history:    newHistoryModel(o.Store, o.Clock),
		settings:   newSettingsModel(o.Device, o.Clock),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForNotice(a.notices),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForNotice(ch <-chan device.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.statsV.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.picker.open {
			var cmd tea.Cmd
			a.picker, cmd = a.picker.update(msg)
			return a, cmd
		}

		// the settings form owns the keyboard while it is open
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.picker = a.picker.show()
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewTimer)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewStats)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewHistory)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		now := time.Time(msg)
		if delta := now.Sub(a.lastTick); delta > 0 {
			a.dev.Tick(delta)
		}
		a.lastTick = now
		return a, tickCmd()

	case noticeMsg:
		a.status = noticeText(device.Notice(msg))
		return a, tea.Batch(waitForNotice(a.notices), a.refreshCurrentView())

	case statusMsg:
		a.status = msg.text
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		return a, nil

	case statsDataMsg:
		a.statsV, _ = a.statsV.update(msg)
		return a, nil

	case historyDataMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func noticeText(n device.Notice) string {
	label := sessionLabel(n.Session)
	switch n.Kind {
	case device.NoticeCompleted:
		return fmt.Sprintf("%s finished (%d min) \a", label, n.Session.Minutes)
	case device.NoticeWarning:
		return fmt.Sprintf("%s ends in 30 seconds", label)
	case device.NoticeInterrupted:
		return "Work session interrupted"
	case device.NoticeMidnight:
		return "New day, counters reset"
	}
	return ""
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewStats:
		a.statsV, cmd = a.statsV.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewStats:
		return a.statsV.refresh()
	case viewHistory:
		return a.history.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewStats:
		content = a.statsV.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.picker.open {
		content = a.picker.view(a.width)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderHeader is the app name on the left and the view tabs on the right.
func (a App) renderHeader() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		style := inactiveTabStyle
		if viewState(i) == a.activeView {
			style = activeTabStyle
		}
		tabs[i] = style.Render(fmt.Sprintf("%d %s", i+1, name))
	}
	name := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("● pomotick")
	return headerStyle.Render(spread(a.width-2, name, lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)))
}

// renderFooter shows key help, then a countdown badge that stays visible
// outside the timer view, then the last status line.
func (a App) renderFooter() string {
	var badge string
	v := a.dev.View()
	if v.Status != device.StatusIdle {
		glyph := "▶"
		if v.Status == device.StatusPaused {
			glyph = "॥"
		}
		badge = statusStyle(v.Status).Render(fmt.Sprintf(" %s %s", glyph, formatClock(v.Remaining)))
	}
	if a.status != "" {
		badge += mutedStyle.Render("  " + a.status)
	}
	return spread(a.width, footerStyle.Render(a.help.View(keys)), badge)
}

// spread pads between left and right so the pair fills width.
func spread(width int, left, right string) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}
