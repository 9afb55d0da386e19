// Package index persists embedded chunk records in SQLite and serves
// vector similarity search over them.
package index

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrWrite is returned when a write to the index fails
	ErrWrite = errors.New("index write failed")
)

// RecordVersion is the schema version stamped on every record. Readers use
// it to recognize rows written by older layouts instead of probing shapes
// at runtime.
const RecordVersion = 1

// Record is one embedded chunk of one document as stored in the index.
type Record struct {
	DocumentID     string
	ChunkID        string // "<document id>#<ordinal>"
	Ordinal        int    // 1-based, contiguous per document
	Title          string
	URL            string
	RevisionMarker time.Time // source's last-edited timestamp when fetched
	Archived       bool
	Properties     map[string]any
	ContentText    string // full normalized document text
	ChunkText      string
	SyncedAt       time.Time // stamped by Insert
	Provider       string
	Model          string
	Dimension      int
	Vector         []float32
	Version        int
}

// Match is one vector search hit.
type Match struct {
	Record     *Record
	Similarity float64
}

// Workspace summarizes the last completed sync of one source workspace.
type Workspace struct {
	Name           string
	TotalDocuments int
	TotalChunks    int
	LastSyncedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Index is the persistence boundary for chunk records.
type Index interface {
	// FindOne returns the lowest-ordinal record for a document, or
	// ErrNotFound when the document has no records.
	FindOne(ctx context.Context, documentID string) (*Record, error)

	// FindByDocument returns all records for a document ordered by ordinal.
	FindByDocument(ctx context.Context, documentID string) ([]*Record, error)

	// Insert stores one record, stamping SyncedAt and Version.
	Insert(ctx context.Context, rec *Record) error

	// DeleteByDocument removes all records for a document and reports how
	// many were deleted.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// SearchVector returns up to limit records ranked by cosine similarity.
	SearchVector(ctx context.Context, vector []float32, limit int) ([]Match, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// CountDocuments returns the number of distinct documents.
	CountDocuments(ctx context.Context) (int, error)

	// UpdateWorkspace records run totals after a completed sync.
	UpdateWorkspace(ctx context.Context, name string, totalDocuments, totalChunks int) error

	// GetWorkspace returns the workspace summary, or ErrNotFound before the
	// first completed sync.
	GetWorkspace(ctx context.Context) (*Workspace, error)

	// Close releases the underlying store.
	Close() error
}
