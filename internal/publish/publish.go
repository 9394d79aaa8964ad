// Package publish sends session and daily-summary events to an MQTT broker.
package publish

import (
	"encoding/json"
	"time"
)

// Topic suffixes under the configured prefix.
const (
	TopicSession = "session"
	TopicDaily   = "daily"
	TopicStatus  = "status"
)

// Publisher delivers device events. Errors are reported, never fatal.
type Publisher interface {
	PublishSession(SessionEvent) error
	PublishDaily(DailySummary) error
	Close() error
}

// SessionEvent describes one session that ended.
type SessionEvent struct {
	Timestamp      time.Time
	Kind           string // work, short_break, long_break
	Minutes        int
	Completed      bool
	CompletedToday int
}

// DailySummary is the statistics of a finished day, sent at midnight.
type DailySummary struct {
	Timestamp     time.Time
	Day           uint32
	Date          string
	Completed     int
	WorkMinutes   int
	BreakMinutes  int
	Interruptions int
}

type sessionPayload struct {
	Session sessionInner `json:"session"`
}

type sessionInner struct {
	Timestamp      string `json:"timestamp"`
	Kind           string `json:"kind"`
	Minutes        int    `json:"minutes"`
	Completed      bool   `json:"completed"`
	CompletedToday int    `json:"completed_today"`
}

// FormatSession renders the JSON payload for ev.
func FormatSession(ev SessionEvent) ([]byte, error) {
	return json.Marshal(sessionPayload{Session: sessionInner{
		Timestamp:      ev.Timestamp.UTC().Format(time.RFC3339),
		Kind:           ev.Kind,
		Minutes:        ev.Minutes,
		Completed:      ev.Completed,
		CompletedToday: ev.CompletedToday,
	}})
}

type dailyPayload struct {
	Daily dailyInner `json:"daily"`
}

type dailyInner struct {
	Timestamp     string `json:"timestamp"`
	Day           uint32 `json:"day"`
	Date          string `json:"date"`
	Completed     int    `json:"completed"`
	WorkMinutes   int    `json:"work_minutes"`
	BreakMinutes  int    `json:"break_minutes"`
	Interruptions int    `json:"interruptions"`
}

// FormatDaily renders the JSON payload for s.
func FormatDaily(s DailySummary) ([]byte, error) {
	return json.Marshal(dailyPayload{Daily: dailyInner{
		Timestamp:     s.Timestamp.UTC().Format(time.RFC3339),
		Day:           s.Day,
		Date:          s.Date,
		Completed:     s.Completed,
		WorkMinutes:   s.WorkMinutes,
		BreakMinutes:  s.BreakMinutes,
		Interruptions: s.Interruptions,
	}})
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

func (Nop) PublishSession(SessionEvent) error { return nil }
func (Nop) PublishDaily(DailySummary) error   { return nil }
func (Nop) Close() error                      { return nil }
