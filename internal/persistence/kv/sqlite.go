package kv

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single-file sqlite database. All operations
// are synchronous; read errors degrade to "key absent" with a logged warning,
// matching the recover-locally posture of the callers.
type SQLite struct {
	db  *sql.DB
	log *log.Logger

	// MaxBytes caps the summed value size; zero means no cap. Exceeding it
	// surfaces as ErrQuotaExceeded so callers can evict and retry.
	MaxBytes int
}

// OpenSQLite opens (creating if needed) the kv database at path.
func OpenSQLite(path string, maxBytes int, logger *log.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, log: logger, MaxBytes: maxBytes}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the small, frequent writes of exploration saves.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(key string) (string, bool) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.warnf("[kv] get %q: %v", key, err)
		return "", false
	}
	return v, true
}

func (s *SQLite) Set(key, value string) error {
	if s.MaxBytes > 0 {
		var used sql.NullInt64
		if err := s.db.QueryRow(`SELECT SUM(LENGTH(key)+LENGTH(value)) FROM kv WHERE key != ?`, key).Scan(&used); err != nil {
			return err
		}
		if int(used.Int64)+len(key)+len(value) > s.MaxBytes {
			return ErrQuotaExceeded
		}
	}
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

func (s *SQLite) Delete(key string) {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.warnf("[kv] delete %q: %v", key, err)
	}
}

func (s *SQLite) Keys(prefix string) []string {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		s.warnf("[kv] keys %q: %v", prefix, err)
		return nil
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			s.warnf("[kv] keys scan: %v", err)
			continue
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		s.warnf("[kv] keys rows: %v", err)
	}
	return out
}

func (s *SQLite) warnf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
