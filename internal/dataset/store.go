// Package dataset owns the relational metadata database: dataset records,
// the per-dataset physical tables (ds_<file_id>), and the query log.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// Status values for a dataset's lifecycle (§3 of the domain spec).
const (
	StatusUploaded   = "uploaded"
	StatusReceiving  = "receiving"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Metadata is one row of the dataset metadata table.
type Metadata struct {
	FileID        int64
	Filename      string
	ByteSize      int64
	MIME          string
	Status        string
	RowCount      int64
	IndexSynced   bool
	LastSyncError string
	CreatedAt     time.Time
}

// Store wraps the metadata database connection. One Store is shared across
// requests and workers; the underlying driver serializes writes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the metadata database at path in WAL mode,
// grounded on the same pragma set as the search-backend's own SQLite store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying connection for components (the relational
// search backend, the index-sync batch reader) that need direct queries
// against dataset tables.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS datasets (
		file_id         INTEGER PRIMARY KEY AUTOINCREMENT,
		filename        TEXT NOT NULL,
		byte_size       INTEGER NOT NULL DEFAULT 0,
		mime            TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'uploaded',
		row_count       INTEGER NOT NULL DEFAULT 0,
		index_synced    INTEGER NOT NULL DEFAULT 0,
		last_sync_error TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS query_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id     INTEGER,
		part_number TEXT NOT NULL,
		mode        TEXT NOT NULL,
		latency_ms  INTEGER NOT NULL,
		match_count INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_log_file_id ON query_log(file_id);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// CreateDataset inserts a new dataset record with status "uploaded" and
// returns its file_id.
func (s *Store) CreateDataset(ctx context.Context, filename, mime string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (filename, mime, status, created_at) VALUES (?, ?, ?, ?)`,
		filename, mime, StatusUploaded, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("create dataset: %w", err)
	}
	return res.LastInsertId()
}

// SetStatus updates a dataset's status field.
func (s *Store) SetStatus(ctx context.Context, fileID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE datasets SET status = ? WHERE file_id = ?`, status, fileID)
	return err
}

// SetByteSize records the final received size of the uploaded file.
func (s *Store) SetByteSize(ctx context.Context, fileID int64, size int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE datasets SET byte_size = ? WHERE file_id = ?`, size, fileID)
	return err
}

// SetRowCount records the current persisted row count.
func (s *Store) SetRowCount(ctx context.Context, fileID int64, count int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE datasets SET row_count = ? WHERE file_id = ?`, count, fileID)
	return err
}

// SetSyncResult records the outcome of an index-sync run.
func (s *Store) SetSyncResult(ctx context.Context, fileID int64, synced bool, syncErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE datasets SET index_synced = ?, last_sync_error = ? WHERE file_id = ?`,
		boolToInt(synced), syncErr, fileID)
	return err
}

// Get returns one dataset's metadata.
func (s *Store) Get(ctx context.Context, fileID int64) (Metadata, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT file_id, filename, byte_size, mime, status, row_count, index_synced, last_sync_error, created_at
		 FROM datasets WHERE file_id = ?`, fileID)

	var m Metadata
	var synced int
	var createdAt string
	if err := row.Scan(&m.FileID, &m.Filename, &m.ByteSize, &m.MIME, &m.Status, &m.RowCount, &synced, &m.LastSyncError, &createdAt); err != nil {
		return Metadata{}, err
	}
	m.IndexSynced = synced != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return m, nil
}

// List returns all dataset metadata, most recent first.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, filename, byte_size, mime, status, row_count, index_synced, last_sync_error, created_at
		 FROM datasets ORDER BY file_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var m Metadata
		var synced int
		var createdAt string
		if err := rows.Scan(&m.FileID, &m.Filename, &m.ByteSize, &m.MIME, &m.Status, &m.RowCount, &synced, &m.LastSyncError, &createdAt); err != nil {
			return nil, err
		}
		m.IndexSynced = synced != 0
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete drops a dataset's physical table and removes its metadata row.
func (s *Store) Delete(ctx context.Context, fileID int64) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, TableName(fileID))); err != nil {
		return fmt.Errorf("drop dataset table: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE file_id = ?`, fileID)
	return err
}

// RecordQuery appends one entry to the query log.
func (s *Store) RecordQuery(ctx context.Context, fileID int64, part, mode string, latencyMS int64, matchCount int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_log (file_id, part_number, mode, latency_ms, match_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fileID, part, mode, latencyMS, matchCount, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// TableName returns the physical table name for a dataset's rows.
func TableName(fileID int64) string {
	return fmt.Sprintf("ds_%d", fileID)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
