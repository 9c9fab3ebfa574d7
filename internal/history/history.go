package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/zioerenkl/AnonymityEngine/internal/model"
)

// ErrSessionNotFound is returned when the requested session id does not
// exist in the database.
var ErrSessionNotFound = errors.New("session not found")

// Store provides SQLite-based persistence for rotation sessions. One
// database holds every session, so the history command can list runs
// across invocations.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file on open.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended; the rotate and
	// history commands may touch the file from separate processes.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "history.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create new files,
	// mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; a bigger pool only invites
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the schema if it does not exist.
func (s *Store) createTables() error {
	schema := `
	-- One row per rotation session (one run of the rotate command).
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		interval_seconds INTEGER NOT NULL,
		budget INTEGER NOT NULL,
		initial_ip TEXT,
		final_ip TEXT,
		attempts INTEGER NOT NULL,
		changes INTEGER NOT NULL,
		cause TEXT NOT NULL
	);

	-- One row per rotation attempt within a session.
	CREATE TABLE IF NOT EXISTS rotation_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		timestamp DATETIME NOT NULL,
		strategy TEXT,
		old_ip TEXT,
		new_ip TEXT,
		changed INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON rotation_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession persists a finished session with its events and returns the
// assigned id. The whole write happens in one transaction so a crash
// cannot leave events without their session row.
func (s *Store) SaveSession(ctx context.Context, summary *model.SessionSummary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (started_at, ended_at, interval_seconds, budget,
			initial_ip, final_ip, attempts, changes, cause)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.EndedAt.UTC().Format(time.RFC3339),
		int(summary.Interval/time.Second),
		summary.Budget,
		summary.InitialIP,
		summary.FinalIP,
		summary.Attempts,
		summary.Changes,
		summary.Cause.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	for _, ev := range summary.Events {
		changed := 0
		if ev.Changed {
			changed = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rotation_events (session_id, timestamp, strategy, old_ip, new_ip, changed, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id,
			ev.Timestamp.UTC().Format(time.RFC3339),
			ev.Strategy,
			ev.OldIP,
			ev.NewIP,
			changed,
			ev.Error,
		); err != nil {
			return 0, fmt.Errorf("failed to insert rotation event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

// ListSessions returns the most recent sessions, newest first, without
// their events. A limit of 0 returns everything.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	query := `
		SELECT id, started_at, ended_at, interval_seconds, budget,
			initial_ip, final_ip, attempts, changes, cause
		FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns one session with its events.
func (s *Store) GetSession(ctx context.Context, id int64) (*model.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, interval_seconds, budget,
			initial_ip, final_ip, attempts, changes, cause
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, strategy, old_ip, new_ip, changed, error
		FROM rotation_events WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.RotationEvent
		var ts string
		var changed int
		if err := rows.Scan(&ts, &ev.Strategy, &ev.OldIP, &ev.NewIP, &changed, &ev.Error); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Timestamp = parseTimestamp(ts)
		ev.Changed = changed != 0
		sess.Events = append(sess.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSession reads one session row.
func scanSession(sc scanner) (model.SessionSummary, error) {
	var sess model.SessionSummary
	var started, ended, cause string
	var intervalSecs int

	err := sc.Scan(&sess.ID, &started, &ended, &intervalSecs, &sess.Budget,
		&sess.InitialIP, &sess.FinalIP, &sess.Attempts, &sess.Changes, &cause)
	if err != nil {
		return sess, err
	}

	sess.StartedAt = parseTimestamp(started)
	sess.EndedAt = parseTimestamp(ended)
	sess.Interval = time.Duration(intervalSecs) * time.Second
	sess.Cause = model.EndCause(cause)
	return sess, nil
}

// parseTimestamp handles both the RFC3339 format we write and SQLite's
// native "2006-01-02 15:04:05" form, returning the zero time on failure.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
