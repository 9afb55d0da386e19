package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]Match, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, db, queryVector, limit)
}

// searchVectorOptimized uses the sqlite-vec extension for SQL-based vector
// similarity search. vec_distance_cosine returns distance (lower is better),
// converted here to similarity (1 - distance).
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}

	queryBlob := serializeVector(queryVector)
	query := `
		SELECT ` + recordColumns + `,
		       1.0 - vec_distance_cosine(vector, ?) as similarity
		FROM chunk_records
		ORDER BY similarity DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, queryBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		rec, similarity, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Record: rec, Similarity: similarity})
	}
	return matches, rows.Err()
}

// scanMatch reads a record row with a trailing similarity column.
func scanMatch(rows *sql.Rows) (*Record, float64, error) {
	var rec Record
	var title, url, props sql.NullString
	var revision, synced sql.NullTime
	var blob []byte
	var similarity float64

	err := rows.Scan(
		&rec.DocumentID, &rec.ChunkID, &rec.Ordinal, &title, &url, &revision,
		&rec.Archived, &props, &rec.ContentText, &rec.ChunkText, &synced,
		&rec.Provider, &rec.Model, &rec.Dimension, &blob, &rec.Version,
		&similarity,
	)
	if err != nil {
		return nil, 0, err
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
	rec.Vector = deserializeVector(blob)
	return &rec, similarity, nil
}

// searchVectorFallback computes cosine similarity in Go over all records.
// Used when the sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}

	query := `SELECT ` + recordColumns + ` FROM chunk_records`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, 1000)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(rec.Vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}
		matches = append(matches, Match{
			Record:     rec,
			Similarity: cosineSimilarity(queryVector, rec.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit], nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
