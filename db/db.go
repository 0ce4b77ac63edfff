package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// The event log is an operational audit trail: vendor switches, power
// transitions, and daemon lifecycle. It is append-only and best effort;
// the daemon keeps running if it is unavailable.

const schema = `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL,
	success BOOLEAN NOT NULL DEFAULT TRUE
)`

type Event struct {
	ID         int64
	RecordedAt time.Time
	Kind       string
	Detail     string
	Success    bool
}

func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return conn, nil
}

func RecordEvent(conn *sql.DB, kind, detail string, success bool) error {
	_, err := conn.Exec(`INSERT INTO events (kind, detail, success) VALUES (?, ?, ?)`, kind, detail, success)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func RecentEvents(conn *sql.DB, limit int) ([]Event, error) {
	rows, err := conn.Query(`SELECT id, recorded_at, kind, detail, success FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RecordedAt, &e.Kind, &e.Detail, &e.Success); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
