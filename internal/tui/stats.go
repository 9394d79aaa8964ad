package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/export"
	"github.com/sadopc/pomotick/internal/stats"
)

type statsModel struct {
	stats  *stats.Store
	width  int
	height int

	days     int // 7 or 30
	history  []stats.DayStats
	today    stats.DayStats
	total7   uint32
	total30  uint32
	totalAll uint32
	rate     float64
	chart    barchart.Model
}

func newStatsModel(s *stats.Store) statsModel {
	return statsModel{
		stats: s,
		days:  7,
		chart: barchart.New(60, 12),
	}
}

func (m *statsModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.buildChart()
}

type statsDataMsg struct {
	history  []stats.DayStats
	today    stats.DayStats
	total7   uint32
	total30  uint32
	totalAll uint32
	rate     float64
}

func (m statsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return statsDataMsg{
			history:  m.stats.LastNDays(m.days),
			today:    m.stats.Today(),
			total7:   m.stats.Last7DaysTotal(),
			total30:  m.stats.Last30DaysTotal(),
			totalAll: m.stats.TotalCompleted(),
			rate:     m.stats.CompletionRate(),
		}
	}
}

func (m statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		m.history = msg.history
		m.today = msg.today
		m.total7 = msg.total7
		m.total30 = msg.total30
		m.totalAll = msg.totalAll
		m.rate = msg.rate
		m.buildChart()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Range) {
			if m.days == 7 {
				m.days = 30
			} else {
				m.days = 7
			}
			return m, m.refresh()
		}
	}
	return m, nil
}

// buildChart plots completed sessions per day, oldest on the left.
func (m *statsModel) buildChart() {
	chartWidth := max(m.width-8, 20)
	chartHeight := 12
	if m.height > 30 {
		chartHeight = 16
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	days := slices.Clone(m.history)
	slices.Reverse(days)

	var bars []barchart.BarData
	for _, d := range days {
		label := export.DayDate(d.Day)[8:]
		if m.days == 7 {
			label = export.DayDate(d.Day)[5:]
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  "completed",
				Value: float64(d.CompletedSessions),
				Style: lipgloss.NewStyle().Foreground(colorPrimary),
			}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m statsModel) view() string {
	w := m.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Statistics"), "  ",
		mutedStyle.Render(fmt.Sprintf("last %d days", m.days)),
	)

	summary := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("  Today      %s completed · %s work · %s break · %d interrupted",
			highlightStyle.Render(fmt.Sprint(m.today.CompletedSessions)),
			formatMinutes(int(m.today.WorkMinutes)),
			formatMinutes(int(m.today.BreakMinutes)),
			m.today.Interruptions),
		fmt.Sprintf("  7 days     %s", highlightStyle.Render(fmt.Sprint(m.total7))),
		fmt.Sprintf("  30 days    %s", highlightStyle.Render(fmt.Sprint(m.total30))),
		fmt.Sprintf("  90 days    %s", highlightStyle.Render(fmt.Sprint(m.totalAll))),
		fmt.Sprintf("  Completion %s", highlightStyle.Render(fmt.Sprintf("%.0f%%", m.rate))),
	)

	nav := mutedStyle.Render("  r: 7/30 days  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.chart.View(), "", summary, "", m.renderTable(w), "", nav,
		),
	)
}

func (m statsModel) renderTable(w int) string {
	active := 0
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %9s %8s %8s %6s", "Date", "Completed", "Work", "Break", "Int.")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 48))))
	for _, d := range m.history {
		if d.IsZero() {
			continue
		}
		active++
		rows = append(rows, fmt.Sprintf("  %-12s %9d %8s %8s %6d",
			export.DayDate(d.Day), d.CompletedSessions,
			formatMinutes(int(d.WorkMinutes)), formatMinutes(int(d.BreakMinutes)), d.Interruptions))
		if active == 7 {
			break
		}
	}
	if active == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}
	return strings.Join(rows, "\n")
}
