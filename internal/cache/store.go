package cache

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

// Store reads and writes cached chunks. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path and initialises
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection; keep a single one so they always apply.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS stimuli (
			key TEXT PRIMARY KEY,
			params TEXT NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			frames INTEGER NOT NULL,
			chunks INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chunks (
			key TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			chunk_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS chunk_index ON chunks (key, chunk_index);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// PutChunk stores chunk index of the stimulus identified by key, replacing any
// previous version. The volume is gzip-compressed before storage.
func (s *Store) PutChunk(key string, index int, v *volume.Volume) error {
	raw, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode chunk %d: %w", index, err)
	}
	compressed, err := gzipCompress(raw)
	if err != nil {
		return fmt.Errorf("failed to compress chunk %d: %w", index, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO chunks (key, chunk_index, chunk_data) VALUES (?, ?, ?)",
		key, index, compressed,
	); err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", index, err)
	}
	return nil
}

// PutStats records the statistics of a fully prepared stimulus.
func (s *Store) PutStats(key string, st Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO stimuli (key, params, min, max, frames, chunks) VALUES (?, ?, ?, ?, ?, ?)",
		key, st.Params, st.Min, st.Max, st.Frames, st.Chunks,
	); err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}

// Delete removes every chunk and the statistics stored under key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM chunks WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM stimuli WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
