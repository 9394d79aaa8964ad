package store

import (
	"fmt"
	"strings"
	"time"
)

// AppendSession writes r to the session log and returns its id.
func (s *Store) AppendSession(r SessionRecord) (int64, error) {
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}
	completed := 0
	if r.Completed {
		completed = 1
	}
	res, err := s.db.Exec(
		`INSERT INTO session_log (day, kind, minutes, completed, ended_at) VALUES (?, ?, ?, ?, ?)`,
		r.Day, string(r.Kind), r.Minutes, completed, r.EndedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("append session: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ListSessions returns log rows matching f, oldest first.
func (s *Store) ListSessions(f SessionFilter) ([]SessionRecord, error) {
	query := `SELECT id, day, kind, minutes, completed, ended_at FROM session_log`
	var conds []string
	var args []any

	if f.FromDay > 0 {
		conds = append(conds, "day >= ?")
		args = append(args, f.FromDay)
	}
	if f.ToDay > 0 {
		conds = append(conds, "day <= ?")
		args = append(args, f.ToDay)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ended_at, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var kind, endedAt string
		var completed int
		if err := rows.Scan(&r.ID, &r.Day, &kind, &r.Minutes, &completed, &endedAt); err != nil {
			return nil, err
		}
		r.Kind = SessionKind(kind)
		r.Completed = completed != 0
		r.EndedAt, _ = time.Parse(time.RFC3339, endedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneSessions deletes log rows older than day and returns how many went.
func (s *Store) PruneSessions(beforeDay uint32) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM session_log WHERE day < ?`, beforeDay)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}
