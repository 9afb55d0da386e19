package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteIndex implements the Index interface using SQLite
type SQLiteIndex struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteIndex creates a new SQLite-backed index, applying migrations.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

const recordColumns = `document_id, chunk_id, ordinal, title, url, revision_marker,
       archived, properties, content_text, chunk_text, synced_at,
       provider, model, dimension, vector, version`

// FindOne returns the lowest-ordinal record for a document.
func (s *SQLiteIndex) FindOne(ctx context.Context, documentID string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM chunk_records
		WHERE document_id = ?
		ORDER BY ordinal
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, documentID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByDocument returns all records for a document ordered by ordinal.
func (s *SQLiteIndex) FindByDocument(ctx context.Context, documentID string) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM chunk_records
		WHERE document_id = ?
		ORDER BY ordinal
	`
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert stores one record. A zero SyncedAt is stamped with the write
// wall-clock; callers writing several chunks for one document pass a shared
// marker so the document's rows agree on when they were synced. Version is
// always stamped with the current schema version.
func (s *SQLiteIndex) Insert(ctx context.Context, rec *Record) error {
	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return fmt.Errorf("%w: encode properties: %v", ErrWrite, err)
	}

	query := `
		INSERT INTO chunk_records (
			document_id, chunk_id, ordinal, title, url, revision_marker,
			archived, properties, content_text, chunk_text, synced_at,
			provider, model, dimension, vector, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := rec.SyncedAt
	if now.IsZero() {
		now = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query,
		rec.DocumentID, rec.ChunkID, rec.Ordinal, rec.Title, rec.URL,
		rec.RevisionMarker, rec.Archived, string(props),
		rec.ContentText, rec.ChunkText, now,
		rec.Provider, rec.Model, rec.Dimension,
		serializeVector(rec.Vector), RecordVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	rec.SyncedAt = now
	rec.Version = RecordVersion
	return nil
}

// DeleteByDocument removes all records for a document.
func (s *SQLiteIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chunk_records WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// SearchVector returns up to limit records ranked by cosine similarity.
func (s *SQLiteIndex) SearchVector(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	return searchVector(ctx, s.db, vector, limit)
}

// Count returns the total number of records.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_records`).Scan(&n)
	return n, err
}

// CountDocuments returns the number of distinct documents.
func (s *SQLiteIndex) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT document_id) FROM chunk_records`).Scan(&n)
	return n, err
}

// UpdateWorkspace records run totals after a completed sync.
func (s *SQLiteIndex) UpdateWorkspace(ctx context.Context, name string, totalDocuments, totalChunks int) error {
	query := `
		INSERT INTO workspaces (id, name, total_documents, total_chunks, last_synced_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_documents = excluded.total_documents,
			total_chunks = excluded.total_chunks,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query, name, totalDocuments, totalChunks, now, now); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// GetWorkspace returns the workspace summary.
func (s *SQLiteIndex) GetWorkspace(ctx context.Context) (*Workspace, error) {
	query := `
		SELECT name, total_documents, total_chunks, last_synced_at, created_at, updated_at
		FROM workspaces
		WHERE id = 1
	`
	var ws Workspace
	var name sql.NullString
	var lastSynced sql.NullTime
	err := s.db.QueryRowContext(ctx, query).Scan(
		&name, &ws.TotalDocuments, &ws.TotalChunks,
		&lastSynced, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		ws.Name = name.String
	}
	if lastSynced.Valid {
		ws.LastSyncedAt = lastSynced.Time
	}
	return &ws, nil
}

// SizeMB reports the database file size in megabytes.
func (s *SQLiteIndex) SizeMB(ctx context.Context) float64 {
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	return float64(pageCount*pageSize) / (1024 * 1024)
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord reads one row leniently. Rows written by older layouts may
// carry NULL markers or unparseable properties; those fields scan to zero
// values so change detection treats the document as needing a fresh sync
// instead of failing the read.
func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var title, url, props sql.NullString
	var revision, synced sql.NullTime
	var blob []byte

	err := row.Scan(
		&rec.DocumentID, &rec.ChunkID, &rec.Ordinal, &title, &url, &revision,
		&rec.Archived, &props, &rec.ContentText, &rec.ChunkText, &synced,
		&rec.Provider, &rec.Model, &rec.Dimension, &blob, &rec.Version,
	)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		rec.Title = title.String
	}
	if url.Valid {
		rec.URL = url.String
	}
	if revision.Valid {
		rec.RevisionMarker = revision.Time
	}
	if synced.Valid {
		rec.SyncedAt = synced.Time
	}
	if props.Valid && props.String != "" {
		_ = json.Unmarshal([]byte(props.String), &rec.Properties)
	}
	rec.Vector = deserializeVector(blob)
	return &rec, nil
}
