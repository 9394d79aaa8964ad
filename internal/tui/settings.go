package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/sequence"
)

type settingsModel struct {
	dev    *device.Device
	clock  Clock
	width  int
	height int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	mode       *string
	work       *string
	shortBreak *string
	longBreak  *string
	sessions   *string
	autoBreaks *bool
	autoWork   *bool
}

func newSettingsModel(dev *device.Device, clock Clock) settingsModel {
	mode, work, sb, lb, n := "", "", "", "", ""
	ab, aw := false, false
	return settingsModel{
		dev:        dev,
		clock:      clock,
		mode:       &mode,
		work:       &work,
		shortBreak: &sb,
		longBreak:  &lb,
		sessions:   &n,
		autoBreaks: &ab,
		autoWork:   &aw,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Enter) {
		return s.showForm()
	}
	return s, nil
}

func (s *settingsModel) load(v device.Settings) {
	*s.mode = v.Mode.String()
	*s.work = strconv.Itoa(int(v.WorkMinutes))
	*s.shortBreak = strconv.Itoa(int(v.ShortBreakMinutes))
	*s.longBreak = strconv.Itoa(int(v.LongBreakMinutes))
	*s.sessions = strconv.Itoa(int(v.SessionsPerCycle))
	*s.autoBreaks = v.AutoStartBreaks
	*s.autoWork = v.AutoStartWork
}

func validateMinutes(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 240 {
		return fmt.Errorf("enter 1-240 minutes")
	}
	return nil
}

func validateSessions(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < sequence.MinSessionsPerCycle || n > sequence.MaxSessionsPerCycle {
		return fmt.Errorf("enter %d-%d sessions", sequence.MinSessionsPerCycle, sequence.MaxSessionsPerCycle)
	}
	return nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	s.load(s.dev.Settings())

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Mode").
				Options(
					huh.NewOption("Classic (4 sessions per cycle)", sequence.Classic.String()),
					huh.NewOption("Study (1 long session)", sequence.Study.String()),
					huh.NewOption("Custom", sequence.Custom.String()),
				).Value(s.mode),
			huh.NewInput().Title("Work (min)").Value(s.work).Validate(validateMinutes),
			huh.NewInput().Title("Short break (min)").Value(s.shortBreak).Validate(validateMinutes),
			huh.NewInput().Title("Long break (min)").Value(s.longBreak).Validate(validateMinutes),
			huh.NewInput().Title("Work sessions per cycle (custom)").Value(s.sessions).Validate(validateSessions),
		).Title("Sessions"),
		huh.NewGroup(
			huh.NewConfirm().Title("Start breaks automatically?").Value(s.autoBreaks),
			huh.NewConfirm().Title("Start work automatically after a break?").Value(s.autoWork),
		).Title("Automation"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.apply()
	}

	return s, cmd
}

// values converts the form fields. Inputs were validated by the form.
func (s settingsModel) values() (device.Settings, error) {
	mode, err := sequence.ParseMode(*s.mode)
	if err != nil {
		return device.Settings{}, err
	}
	atoi := func(v string) int { n, _ := strconv.Atoi(v); return n }
	return device.Settings{
		Mode:              mode,
		WorkMinutes:       uint16(atoi(*s.work)),
		ShortBreakMinutes: uint16(atoi(*s.shortBreak)),
		LongBreakMinutes:  uint16(atoi(*s.longBreak)),
		SessionsPerCycle:  uint8(atoi(*s.sessions)),
		AutoStartBreaks:   *s.autoBreaks,
		AutoStartWork:     *s.autoWork,
	}, nil
}

func (s settingsModel) apply() tea.Cmd {
	v, err := s.values()
	if err == nil {
		err = s.dev.ApplySettings(v)
	}
	return func() tea.Msg {
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return statusMsg{text: "Settings saved"}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	v := s.dev.Settings()
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	pairs := [][2]string{
		{"Mode", v.Mode.String()},
		{"Work", fmt.Sprintf("%d min", v.WorkMinutes)},
		{"Short break", fmt.Sprintf("%d min", v.ShortBreakMinutes)},
		{"Long break", fmt.Sprintf("%d min", v.LongBreakMinutes)},
		{"Sessions per cycle", strconv.Itoa(int(v.SessionsPerCycle))},
		{"Auto-start breaks", onOff(v.AutoStartBreaks)},
		{"Auto-start work", onOff(v.AutoStartWork)},
		{"Time source", s.clock.Source().String()},
		{"Clock drift", fmt.Sprintf("%.1f ppm", s.clock.DriftPPM())},
	}

	rows := []string{title, ""}
	for _, p := range pairs {
		label := lipgloss.NewStyle().Width(24).Render(p[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(p[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
