package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/device"
)

var (
	colorPrimary = lipgloss.Color("#E4572E") // tomato
	colorWork    = lipgloss.Color("#F25F5C")
	colorBreak   = lipgloss.Color("#3BB273")
	colorPaused  = lipgloss.Color("#F2A541")
	colorIdle    = lipgloss.Color("#7D8CC4")
	colorText    = lipgloss.Color("#DADDE8")
	colorDim     = lipgloss.Color("#6B6F80")
	colorFrame   = lipgloss.Color("#3A3D4D")
	colorInfo    = lipgloss.Color("#5BC0EB")
	colorFail    = lipgloss.Color("#D7263D")
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Underline(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim).
				Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(1, 2)

	activePanelStyle = panelStyle.BorderForeground(colorPrimary)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	subtitleStyle  = lipgloss.NewStyle().Italic(true).Foreground(colorDim)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorDim)
	highlightStyle = lipgloss.NewStyle().Foreground(colorInfo)
	accentStyle    = lipgloss.NewStyle().Foreground(colorWork)
	successStyle   = lipgloss.NewStyle().Foreground(colorBreak)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorFail)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = mutedStyle.Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	normalItemStyle   = lipgloss.NewStyle().Foreground(colorText)
)

// statusStyles colours the countdown by device status.
var statusStyles = map[string]lipgloss.Style{
	device.StatusIdle:   lipgloss.NewStyle().Bold(true).Foreground(colorIdle),
	device.StatusWork:   lipgloss.NewStyle().Bold(true).Foreground(colorWork),
	device.StatusBreak:  lipgloss.NewStyle().Bold(true).Foreground(colorBreak),
	device.StatusPaused: lipgloss.NewStyle().Bold(true).Foreground(colorPaused).Blink(true),
}

func statusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return statusStyles[device.StatusIdle]
}
