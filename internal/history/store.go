// Package history is the client's bounded local cache of query/answer
// round-trips. It is independent of the server's session log: best-effort,
// capped at MaxHistory records, cleared only by explicit user action.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/afsharalex/PaperShelf/internal/gateway"
)

// MaxHistory is the cap on retained records. Appending beyond it evicts the
// oldest record.
const MaxHistory = 10

// Record is one completed query/answer round-trip. Records are created only
// for successful queries and never mutated afterward.
type Record struct {
	ID        string                      `json:"id"`
	CreatedAt time.Time                   `json:"created_at"`
	Query     string                      `json:"query"`
	Answer    string                      `json:"answer"`
	Documents []gateway.RetrievedDocument `json:"retrieved_documents"`
}

const schema = `
CREATE TABLE IF NOT EXISTS query_history (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	query TEXT NOT NULL,
	answer TEXT NOT NULL,
	documents TEXT NOT NULL
)`

// Store persists the history in a local SQLite database. All mutations go
// through a single writer: the mutex keeps the read-modify-write sequence
// of Append/Clear atomic even off the single UI goroutine.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the history database in dataDir. Pass ":memory:"
// for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "history.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the retained records, newest first. Corrupt or unreadable
// persisted state degrades to an empty history rather than an error: the
// cache is best-effort and must never block rendering.
func (s *Store) Load() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() []Record {
	rows, err := s.db.Query(`
		SELECT id, created_at, query, answer, documents
		FROM query_history ORDER BY rowid DESC`)
	if err != nil {
		slog.Warn("could not read query history, treating as empty", "error", err)
		return nil
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var createdAt, documents string
		if err := rows.Scan(&r.ID, &createdAt, &r.Query, &r.Answer, &documents); err != nil {
			slog.Warn("could not read query history, treating as empty", "error", err)
			return nil
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(documents), &r.Documents); err != nil {
			// Keep the query/answer pair; it just loses its sources.
			slog.Warn("malformed documents in history record, dropping sources", "id", r.ID, "error", err)
			r.Documents = nil
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("could not read query history, treating as empty", "error", err)
		return nil
	}
	return records
}

// Append prepends a record, evicts anything beyond MaxHistory, and returns
// the new sequence. Insert and eviction commit in one transaction so the
// persisted state always matches what the caller sees.
func (s *Store) Append(r Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	documents, err := json.Marshal(r.Documents)
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO query_history (id, created_at, query, answer, documents)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Query, r.Answer, string(documents),
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("inserting record: %w", err)
	}

	// Evict oldest-first by insert order, not timestamp, so records from
	// the same second still age out deterministically.
	if _, err := tx.Exec(`
		DELETE FROM query_history WHERE rowid NOT IN (
			SELECT rowid FROM query_history ORDER BY rowid DESC LIMIT ?
		)`, MaxHistory,
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("evicting old records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing record: %w", err)
	}

	return s.loadLocked(), nil
}

// Clear empties the history. Asking the user first is the caller's job.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM query_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
