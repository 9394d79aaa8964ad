package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// SessionKind labels a session_log row.
type SessionKind string

const (
	KindWork       SessionKind = "work"
	KindShortBreak SessionKind = "short_break"
	KindLongBreak  SessionKind = "long_break"
)

// SessionRecord is one finished or interrupted session.
type SessionRecord struct {
	ID        int64
	Day       uint32 // days since the Unix epoch
	Kind      SessionKind
	Minutes   int
	Completed bool
	EndedAt   time.Time
}

// SessionFilter narrows ListSessions. Zero fields do not filter.
type SessionFilter struct {
	FromDay uint32
	ToDay   uint32 // inclusive
	Kind    SessionKind
	Limit   int
}
