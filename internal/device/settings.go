package device

import (
	"strconv"

	"github.com/sadopc/pomotick/internal/sequence"
	"github.com/sadopc/pomotick/internal/store"
)

// Settings are the user's Pomodoro preferences, persisted in the settings
// table.
type Settings struct {
	Mode              sequence.Mode
	WorkMinutes       uint16
	ShortBreakMinutes uint16
	LongBreakMinutes  uint16
	SessionsPerCycle  uint8
	AutoStartBreaks   bool
	AutoStartWork     bool
}

// DefaultSettings mirrors the settings table seed.
func DefaultSettings() Settings {
	d := sequence.ModeDefaults(sequence.Classic)
	return Settings{
		Mode:              sequence.Classic,
		WorkMinutes:       d.WorkMinutes,
		ShortBreakMinutes: d.ShortBreakMinutes,
		LongBreakMinutes:  d.LongBreakMinutes,
		SessionsPerCycle:  d.SessionsPerCycle,
		AutoStartBreaks:   true,
		AutoStartWork:     false,
	}
}

// LoadSettings reads the settings table. Missing or malformed values fall
// back to the defaults.
func LoadSettings(s *store.Store) Settings {
	def := DefaultSettings()
	out := Settings{
		Mode:              def.Mode,
		WorkMinutes:       clampMinutes(s.GetSettingInt(store.SettingWorkMinutes, int(def.WorkMinutes))),
		ShortBreakMinutes: clampMinutes(s.GetSettingInt(store.SettingShortBreak, int(def.ShortBreakMinutes))),
		LongBreakMinutes:  clampMinutes(s.GetSettingInt(store.SettingLongBreak, int(def.LongBreakMinutes))),
		SessionsPerCycle:  clampSessions(s.GetSettingInt(store.SettingSessions, int(def.SessionsPerCycle))),
		AutoStartBreaks:   s.GetSettingBool(store.SettingAutoStartBreaks, def.AutoStartBreaks),
		AutoStartWork:     s.GetSettingBool(store.SettingAutoStartWork, def.AutoStartWork),
	}
	if raw, err := s.GetSetting(store.SettingMode); err == nil {
		if m, err := sequence.ParseMode(raw); err == nil {
			out.Mode = m
		}
	}
	return out
}

// SaveSettings writes every field to the settings table.
func SaveSettings(s *store.Store, v Settings) error {
	pairs := [][2]string{
		{store.SettingMode, v.Mode.String()},
		{store.SettingWorkMinutes, strconv.Itoa(int(v.WorkMinutes))},
		{store.SettingShortBreak, strconv.Itoa(int(v.ShortBreakMinutes))},
		{store.SettingLongBreak, strconv.Itoa(int(v.LongBreakMinutes))},
		{store.SettingSessions, strconv.Itoa(int(v.SessionsPerCycle))},
		{store.SettingAutoStartBreaks, strconv.FormatBool(v.AutoStartBreaks)},
		{store.SettingAutoStartWork, strconv.FormatBool(v.AutoStartWork)},
	}
	for _, p := range pairs {
		if err := s.SetSetting(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// applyDurations pushes the duration fields and the cycle length into seq.
// The mode is applied separately because switching it discards cycle
// progress.
func (v Settings) applyDurations(seq *sequence.Sequence) {
	v.applyMinutes(seq)
	seq.SetSessionsPerCycle(v.SessionsPerCycle)
}

// applyMinutes is safe while a session runs: the engine keeps the total it
// started with.
func (v Settings) applyMinutes(seq *sequence.Sequence) {
	seq.SetWorkMinutes(v.WorkMinutes)
	seq.SetShortBreakMinutes(v.ShortBreakMinutes)
	seq.SetLongBreakMinutes(v.LongBreakMinutes)
}

func clampMinutes(n int) uint16 {
	return uint16(min(max(n, 1), 240))
}

func clampSessions(n int) uint8 {
	return uint8(min(max(n, sequence.MinSessionsPerCycle), sequence.MaxSessionsPerCycle))
}
