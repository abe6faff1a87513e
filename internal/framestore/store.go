package framestore

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of frames to buffer before flushing to the database.
	DefaultBatchSize = 16
)

// Store reads and writes cached frames. Get and Put are safe for concurrent use.
type Store struct {
	db        *sql.DB
	path      string
	batch     []FrameEntry
	pending   map[frameKey]int // index into batch
	batchSize int
	mu        sync.Mutex
}

// Open opens or creates a frame store at path and initializes the schema.
func Open(path string, metadata Metadata) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
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

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Store{
		db:        db,
		path:      path,
		batch:     make([]FrameEntry, 0, DefaultBatchSize),
		pending:   make(map[frameKey]int, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

// createSchema creates the frame store schema.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS frames (
			fingerprint TEXT NOT NULL,
			frame_index INTEGER NOT NULL,
			frame_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS frame_index_key ON frames (fingerprint, frame_index);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// insertMetadata replaces the metadata table contents.
func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// Metadata reads the metadata table.
func (s *Store) Metadata() (Metadata, error) {
	rows, err := s.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        metaMap["name"],
		Description: metaMap["description"],
		Version:     metaMap["version"],
	}, nil
}

// Get returns the cached frame for (fingerprint, index). A missing frame, or
// one whose length differs from wantLen, is reported as a miss.
func (s *Store) Get(fingerprint string, index, wantLen int) ([]byte, bool, error) {
	s.mu.Lock()
	if i, ok := s.pending[frameKey{fingerprint, index}]; ok {
		data := s.batch[i].Data
		s.mu.Unlock()
		if len(data) != wantLen {
			return nil, false, nil
		}
		return bytes.Clone(data), true, nil
	}
	s.mu.Unlock()

	var compressed []byte
	err := s.db.QueryRow(
		"SELECT frame_data FROM frames WHERE fingerprint=? AND frame_index=?",
		fingerprint, index,
	).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query frame %d: %w", index, err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress frame %d: %w", index, err)
	}
	if len(data) != wantLen {
		return nil, false, nil
	}
	return data, true, nil
}

// Put adds a frame to the batch. When the batch is full, it is flushed. The
// store keeps its own copy of data.
func (s *Store) Put(fingerprint string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := frameKey{fingerprint, index}
	entry := FrameEntry{Fingerprint: fingerprint, Index: index, Data: bytes.Clone(data)}
	if i, ok := s.pending[key]; ok {
		s.batch[i] = entry
	} else {
		s.pending[key] = len(s.batch)
		s.batch = append(s.batch, entry)
	}

	if len(s.batch) >= s.batchSize {
		return s.flushLocked()
	}

	return nil
}

// Flush writes any buffered frames to the database.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes buffered frames to the database. Must be called with lock held.
func (s *Store) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO frames (fingerprint, frame_index, frame_data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, frame := range s.batch {
		compressed, err := gzipCompress(frame.Data)
		if err != nil {
			return fmt.Errorf("failed to compress frame %d: %w", frame.Index, err)
		}

		if _, err := stmt.Exec(frame.Fingerprint, frame.Index, compressed); err != nil {
			return fmt.Errorf("failed to insert frame %d: %w", frame.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.batch = s.batch[:0]
	clear(s.pending)
	return nil
}

// Count returns the number of stored frames for fingerprint, including
// frames still waiting in the batch.
func (s *Store) Count(fingerprint string) (int, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM frames WHERE fingerprint=?", fingerprint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return n, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close flushes any remaining frames and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// gzipCompress compresses data with gzip.
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

// gzipDecompress decompresses gzip data.
func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
