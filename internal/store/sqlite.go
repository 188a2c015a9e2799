package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/aidekit/aide/internal/agent"
	"github.com/aidekit/aide/internal/logging"
)

type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create_sessions",
		SQL: `
			CREATE TABLE sessions (
				id         TEXT PRIMARY KEY,
				version    INTEGER NOT NULL,
				timestamp  TEXT NOT NULL,
				messages   INTEGER NOT NULL,
				snapshot   TEXT NOT NULL
			);
			CREATE INDEX idx_sessions_timestamp ON sessions(timestamp);
		`,
	},
}

// SQLiteStore persists sessions in a SQLite database, one row per
// session with the snapshot as a JSON column. Use ":memory:" for tests.
type SQLiteStore struct {
	db  *sql.DB
	log *logging.Logger
}

// OpenSQLite opens (or creates) the database at path and runs
// migrations.
func OpenSQLite(path string, log *logging.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.Sub("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.log.Debug().Str("path", path).Msg("session database opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// Save upserts the snapshot under its id.
func (s *SQLiteStore) Save(snap agent.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("invalid session id %q", snap.ID)
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", snap.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, version, timestamp, messages, snapshot)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			timestamp = excluded.timestamp,
			messages = excluded.messages,
			snapshot = excluded.snapshot
	`, snap.ID, snap.Version, snap.Timestamp.Format(time.RFC3339Nano), len(snap.Messages), string(blob))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", snap.ID, err)
	}

	s.log.Debug().Str("id", snap.ID).Int("messages", len(snap.Messages)).Msg("session saved")
	return nil
}

// Load reads the snapshot saved under id.
func (s *SQLiteStore) Load(id string) (agent.Snapshot, error) {
	var snap agent.Snapshot
	var blob string
	err := s.db.QueryRow("SELECT snapshot FROM sessions WHERE id = ?", id).Scan(&blob)
	if err == sql.ErrNoRows {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("loading session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return snap, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return snap, nil
}

// List returns stored sessions, newest first.
func (s *SQLiteStore) List() ([]SessionInfo, error) {
	rows, err := s.db.Query("SELECT id, timestamp, messages FROM sessions ORDER BY timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var ts string
		if err := rows.Scan(&info.ID, &ts, &info.Messages); err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the session saved under id.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
