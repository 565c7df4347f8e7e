// Package stats persists dispatch statistics snapshots in SQLite.
package stats

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/opdispatch/value"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound indicates the requested session has no rows.
var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id       TEXT PRIMARY KEY,
	recorded INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dispatch_stats (
	session    TEXT NOT NULL REFERENCES sessions(id),
	kind       TEXT NOT NULL,
	op         TEXT NOT NULL,
	left_type  TEXT NOT NULL,
	right_type TEXT NOT NULL,
	exact      INTEGER NOT NULL,
	converted  INTEGER NOT NULL,
	class      INTEGER NOT NULL,
	decomposed INTEGER NOT NULL,
	missed     INTEGER NOT NULL,
	failed     INTEGER NOT NULL,
	PRIMARY KEY (session, kind, op, left_type, right_type)
);`

// Store is a SQLite database of statistics snapshots, one session per
// recorded snapshot.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Session describes one recorded snapshot.
type Session struct {
	ID       uuid.UUID
	Recorded time.Time
	Rows     int
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores rows under session. Recording the same session again
// adds to the stored counters.
func (s *Store) Record(session uuid.UUID, rows []value.StatRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := session.String()
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO sessions (id, recorded) VALUES (?, ?)",
		id, time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("recording session: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO dispatch_stats
		(session, kind, op, left_type, right_type, exact, converted, class, decomposed, missed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session, kind, op, left_type, right_type) DO UPDATE SET
			exact = exact + excluded.exact,
			converted = converted + excluded.converted,
			class = class + excluded.class,
			decomposed = decomposed + excluded.decomposed,
			missed = missed + excluded.missed,
			failed = failed + excluded.failed`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(id, r.Kind, r.Op, r.Left, r.Right,
			r.Exact, r.Converted, r.Class, r.Decomposed, r.Missed, r.Failed); err != nil {
			return fmt.Errorf("recording %s %s: %w", r.Kind, r.Op, err)
		}
	}

	return tx.Commit()
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`SELECT s.id, s.recorded, COUNT(d.session)
		FROM sessions s LEFT JOIN dispatch_stats d ON d.session = s.id
		GROUP BY s.id ORDER BY s.recorded, s.id`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			id       string
			recorded int64
			n        int
		)
		if err := rows.Scan(&id, &recorded, &n); err != nil {
			return nil, err
		}
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		out = append(out, Session{ID: u, Recorded: time.Unix(0, recorded), Rows: n})
	}
	return out, rows.Err()
}

// Load returns the rows recorded under session, in snapshot order.
func (s *Store) Load(session uuid.UUID) ([]value.StatRow, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", session.String()).Scan(&n); err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if n == 0 {
		return nil, ErrSessionNotFound
	}
	return s.query(`SELECT kind, op, left_type, right_type,
		exact, converted, class, decomposed, missed, failed
		FROM dispatch_stats WHERE session = ?
		ORDER BY kind, op, left_type, right_type`, session.String())
}

// Totals sums the counters of every session.
func (s *Store) Totals() ([]value.StatRow, error) {
	return s.query(`SELECT kind, op, left_type, right_type,
		SUM(exact), SUM(converted), SUM(class), SUM(decomposed), SUM(missed), SUM(failed)
		FROM dispatch_stats
		GROUP BY kind, op, left_type, right_type
		ORDER BY kind, op, left_type, right_type`)
}

func (s *Store) query(q string, args ...any) ([]value.StatRow, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var out []value.StatRow
	for rows.Next() {
		var r value.StatRow
		if err := rows.Scan(&r.Kind, &r.Op, &r.Left, &r.Right,
			&r.Exact, &r.Converted, &r.Class, &r.Decomposed, &r.Missed, &r.Failed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
