// Package store provides database access for the Takumi agent runtime.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite connection and provides access to all agent tables.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs all pending
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -32000",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// DB returns the raw *sql.DB for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// runMigrations applies any SQL files not yet recorded in schema_migrations.
func (s *Store) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	_ = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version, description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", e.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", e.Name(), err)
		}
		slog.Info("applied migration", "version", version, "description", description)
	}
	return nil
}

// LogTurn inserts a new row into turn_log and returns the inserted ID.
func (s *Store) LogTurn(requestID, request string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO turn_log (request_id, request)
		VALUES (?, ?)`,
		requestID, request,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishTurn updates an existing turn_log row with the outcome.
func (s *Store) FinishTurn(id int64, iterations, toolCalls int, answer, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE turn_log
		SET iterations = ?, tool_calls = ?, answer = ?, error_msg = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		iterations, toolCalls, answer, nullableString(errMsg), id,
	)
	return err
}

// Turn is one completed (or in-flight) agent turn from the audit log.
type Turn struct {
	ID        int64
	RequestID string
	Request   string
	Answer    string
	Iterations int
	ToolCalls int
	StartedAt time.Time
}

// RecentTurns returns the latest turns in reverse chronological order.
func (s *Store) RecentTurns(limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, request_id, request, COALESCE(answer, ''), iterations, tool_calls, started_at
		FROM turn_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.RequestID, &t.Request, &t.Answer, &t.Iterations, &t.ToolCalls, &t.StartedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Chunk is one indexed fragment of a source file, with its embedding vector.
type Chunk struct {
	ID        string
	Path      string
	StartLine int
	EndLine   int
	Content   string
	Embedding []float32
}

// ReplaceFileChunks atomically replaces all indexed chunks for one file.
func (s *Store) ReplaceFileChunks(path string, chunks []Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM code_chunks WHERE path = ?", path); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete chunks for %s: %w", path, err)
	}
	for _, c := range chunks {
		vec, err := json.Marshal(c.Embedding)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode embedding for %s: %w", path, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO code_chunks (chunk_id, path, start_line, end_line, content, embedding)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Path, c.StartLine, c.EndLine, c.Content, string(vec),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert chunk for %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// AllChunks loads every indexed chunk with its embedding. Similarity ranking
// happens in Go, so the full set is returned.
func (s *Store) AllChunks() ([]Chunk, error) {
	rows, err := s.db.Query(`
		SELECT chunk_id, path, start_line, end_line, content, embedding
		FROM code_chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var vec string
		if err := rows.Scan(&c.ID, &c.Path, &c.StartLine, &c.EndLine, &c.Content, &vec); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vec), &c.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of indexed chunks.
func (s *Store) CountChunks() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM code_chunks").Scan(&n)
	return n, err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
