package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists sessions and events in the SQLite audit database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened and migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// StartSession inserts the session row.
func (s *Store) StartSession(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO sessions(session_id, started_at) VALUES(?, ?)`,
		id, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the session end time.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET ended_at=? WHERE session_id=?`,
		at.UTC().Format(time.RFC3339Nano), id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Record inserts ev, creating its session row if missing.
func (s *Store) Record(ctx context.Context, ev Event) error {
	var data any
	if len(ev.Data) > 0 {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("encode event data: %w", err)
		}
		data = string(raw)
	}
	var success any
	if ev.Success != nil {
		success = *ev.Success
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sessions(session_id, started_at) VALUES(?, ?)`,
		ev.SessionID, ev.Time.UTC().Format(time.RFC3339Nano)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(event_id, session_id, seq, ts, type, message, success, data_json)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Seq, ev.Time.UTC().Format(time.RFC3339Nano), string(ev.Type), ev.Message, success, data); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// Query filters Recent.
type Query struct {
	Limit   int
	Type    EventType
	Session string
}

// Recent returns the newest events first.
func (s *Store) Recent(ctx context.Context, q Query) ([]Event, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT event_id, session_id, seq, ts, type, message, success, data_json
		FROM events
		WHERE (? = '' OR type = ?) AND (? = '' OR session_id = ?)
		ORDER BY ts DESC, seq DESC
		LIMIT ?`,
		string(q.Type), string(q.Type), q.Session, q.Session, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			ev      Event
			ts      string
			typ     string
			success sql.NullBool
			data    sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Seq, &ts, &typ, &ev.Message, &success, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = EventType(typ)
		if ev.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", ts, err)
		}
		if success.Valid {
			ev.Success = Bool(success.Bool)
		}
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &ev.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}
