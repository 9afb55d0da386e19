package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLiteIndex(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testRecord(documentID string, ordinal int) *Record {
	return &Record{
		DocumentID:     documentID,
		ChunkID:        fmt.Sprintf("%s#%d", documentID, ordinal),
		Ordinal:        ordinal,
		Title:          "Meeting Notes",
		URL:            "https://notion.so/" + documentID,
		RevisionMarker: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Properties:     map[string]any{"Status": "Done"},
		ContentText:    "full document text",
		ChunkText:      fmt.Sprintf("chunk %d text", ordinal),
		Provider:       "local",
		Model:          "deterministic-v1",
		Dimension:      3,
		Vector:         []float32{1, 0, 0},
	}
}

func TestInsertAndFindOne(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	rec := testRecord("doc-1", 1)
	require.NoError(t, idx.Insert(ctx, rec))

	assert.False(t, rec.SyncedAt.IsZero(), "Insert stamps SyncedAt")
	assert.Equal(t, RecordVersion, rec.Version)

	got, err := idx.FindOne(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "doc-1#1", got.ChunkID)
	assert.Equal(t, "Meeting Notes", got.Title)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector)
	assert.Equal(t, "Done", got.Properties["Status"])
	assert.True(t, got.RevisionMarker.Equal(rec.RevisionMarker))
	assert.False(t, got.SyncedAt.IsZero())
}

func TestFindOneNotFound(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.FindOne(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOneReturnsLowestOrdinal(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 3)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 1)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 2)))

	got, err := idx.FindOne(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Ordinal)
}

func TestFindByDocumentOrdered(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, ord := range []int{2, 1, 3} {
		require.NoError(t, idx.Insert(ctx, testRecord("doc-1", ord)))
	}
	require.NoError(t, idx.Insert(ctx, testRecord("doc-2", 1)))

	records, err := idx.FindByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Ordinal)
		assert.Equal(t, "doc-1", rec.DocumentID)
	}
}

func TestDeleteByDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 1)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 2)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-2", 1)))

	deleted, err := idx.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = idx.FindOne(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Other documents untouched.
	_, err = idx.FindOne(ctx, "doc-2")
	assert.NoError(t, err)
}

func TestDeleteByDocumentEmpty(t *testing.T) {
	idx := newTestIndex(t)

	deleted, err := idx.DeleteByDocument(context.Background(), "absent")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestInsertDuplicateChunkID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 1)))
	err := idx.Insert(ctx, testRecord("doc-1", 1))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestCounts(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 1)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 2)))
	require.NoError(t, idx.Insert(ctx, testRecord("doc-2", 1)))

	total, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	docs, err := idx.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, docs)
}

func TestSearchVectorRanksBySimilarity(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	exact := testRecord("doc-1", 1)
	exact.Vector = []float32{1, 0, 0}
	require.NoError(t, idx.Insert(ctx, exact))

	near := testRecord("doc-2", 1)
	near.Vector = []float32{0.9, 0.1, 0}
	require.NoError(t, idx.Insert(ctx, near))

	far := testRecord("doc-3", 1)
	far.Vector = []float32{0, 0, 1}
	require.NoError(t, idx.Insert(ctx, far))

	matches, err := idx.SearchVector(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-1", matches[0].Record.DocumentID)
	assert.Equal(t, "doc-2", matches[1].Record.DocumentID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestSearchVectorSkipsDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	rec := testRecord("doc-1", 1)
	rec.Vector = []float32{1, 0}
	rec.Dimension = 2
	require.NoError(t, idx.Insert(ctx, rec))

	matches, err := idx.SearchVector(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchVectorZeroLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, testRecord("doc-1", 1)))

	matches, err := idx.SearchVector(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}
	blob := SerializeVector(vec)
	assert.Equal(t, vec, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
}

func TestWorkspaceBookkeeping(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.GetWorkspace(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, idx.UpdateWorkspace(ctx, "team-wiki", 12, 40))
	ws, err := idx.GetWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, "team-wiki", ws.Name)
	assert.Equal(t, 12, ws.TotalDocuments)
	assert.Equal(t, 40, ws.TotalChunks)
	assert.False(t, ws.LastSyncedAt.IsZero())

	// Second sync overwrites the single row.
	require.NoError(t, idx.UpdateWorkspace(ctx, "team-wiki", 13, 44))
	ws, err = idx.GetWorkspace(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, ws.TotalDocuments)
}

func TestScanToleratesNullMarkers(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Simulate a row written by an older layout with NULL markers.
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO chunk_records (
			document_id, chunk_id, ordinal, title, url, revision_marker,
			archived, properties, content_text, chunk_text, synced_at,
			provider, model, dimension, vector, version
		) VALUES (?, ?, ?, NULL, NULL, NULL, 0, NULL, ?, ?, ?, ?, ?, ?, ?, ?)
	`, "doc-old", "doc-old#1", 1, "text", "chunk", time.Now(),
		"local", "m", 3, SerializeVector([]float32{1, 0, 0}), RecordVersion)
	require.NoError(t, err)

	got, err := idx.FindOne(ctx, "doc-old")
	require.NoError(t, err)
	assert.True(t, got.RevisionMarker.IsZero())
	assert.Empty(t, got.Title)
	assert.Nil(t, got.Properties)
}

func TestInsertKeepsProvidedSyncMarker(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	stamp := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	first := testRecord("doc-1", 1)
	second := testRecord("doc-1", 2)
	first.SyncedAt = stamp
	second.SyncedAt = stamp

	require.NoError(t, idx.Insert(ctx, first))
	require.NoError(t, idx.Insert(ctx, second))

	records, err := idx.FindByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].SyncedAt.Equal(stamp))
	assert.True(t, records[1].SyncedAt.Equal(records[0].SyncedAt),
		"both chunks share the document's marker")
}
