package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys read by the device.
const (
	SettingMode            = "pomodoro_mode"
	SettingWorkMinutes     = "pomodoro_work"
	SettingShortBreak      = "pomodoro_short_break"
	SettingLongBreak       = "pomodoro_long_break"
	SettingSessions        = "pomodoro_sessions"
	SettingAutoStartBreaks = "auto_start_breaks"
	SettingAutoStartWork   = "auto_start_work"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// GetSettingInt parses a numeric setting, returning def when it is missing
// or malformed.
func (s *Store) GetSettingInt(key string, def int) int {
	v, err := s.GetSetting(key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetSettingBool parses a boolean setting, returning def when it is missing
// or malformed.
func (s *Store) GetSettingBool(key string, def bool) bool {
	v, err := s.GetSetting(key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
