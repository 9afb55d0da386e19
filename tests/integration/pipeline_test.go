package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/notionvec/notionvec/internal/embedder"
	"github.com/notionvec/notionvec/internal/index"
	"github.com/notionvec/notionvec/internal/searcher"
	"github.com/notionvec/notionvec/internal/syncer"
)

// PipelineTestSuite exercises the full sync and search pipeline against a
// real SQLite index with the deterministic embedder.
type PipelineTestSuite struct {
	suite.Suite
	ctx      context.Context
	src      *memorySource
	idx      *index.SQLiteIndex
	syncer   *syncer.Syncer
	searcher *searcher.Searcher
}

// SetupTest runs before each test
func (s *PipelineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.src = newMemorySource()

	idx, err := index.NewSQLiteIndex(":memory:")
	s.Require().NoError(err)
	s.idx = idx

	emb := embedder.NewLocalEmbedder()
	sync, err := syncer.New(s.src, emb, s.idx, syncer.Config{
		ChunkSize:     120,
		EmbedWorkers:  2,
		WorkspaceName: "integration",
	}, log.New(io.Discard, "", 0))
	s.Require().NoError(err)
	s.syncer = sync
	s.searcher = searcher.New(s.idx, emb)
}

// TearDownTest runs after each test
func (s *PipelineTestSuite) TearDownTest() {
	if s.idx != nil {
		_ = s.idx.Close()
	}
}

func (s *PipelineTestSuite) TestInitialSyncPopulatesIndex() {
	edited := time.Now().Add(-time.Hour)
	s.src.add("doc-roadmap", "Roadmap", edited,
		"The platform roadmap covers ingestion and retrieval milestones.")
	s.src.add("doc-oncall", "Oncall Guide", edited,
		"Escalate paging incidents to the platform rotation first.")

	stats, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Found)
	s.Equal(2, stats.Inserted)
	s.Equal(0, stats.Updated)
	s.Equal(0, stats.Failed)
	s.Empty(stats.Errors)

	records, err := s.idx.FindByDocument(s.ctx, "doc-roadmap")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("doc-roadmap#1", records[0].ChunkID)
	s.Equal("Roadmap", records[0].Title)
	s.Equal(edited.Unix(), records[0].RevisionMarker.Unix())
	s.False(records[0].SyncedAt.IsZero())
	s.NotEmpty(records[0].Vector)
}

func (s *PipelineTestSuite) TestSecondRunSkipsUnchangedDocuments() {
	edited := time.Now().Add(-time.Hour)
	s.src.add("doc-a", "A", edited, "Alpha content for the first document.")
	s.src.add("doc-b", "B", edited, "Beta content for the second document.")

	_, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)

	stats, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Found)
	s.Equal(0, stats.Inserted)
	s.Equal(2, stats.Unchanged)

	chunks, err := s.idx.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, chunks)
}

func (s *PipelineTestSuite) TestEditedDocumentIsReplaced() {
	s.src.add("doc-a", "A", time.Now().Add(-time.Hour),
		"Original draft text before the rewrite.")
	s.src.add("doc-b", "B", time.Now().Add(-time.Hour),
		"Stable content that never changes.")

	_, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)

	s.src.touch("doc-a", time.Now().Add(time.Hour),
		"Rewritten text after a major revision.")

	stats, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Updated)
	s.Equal(1, stats.Unchanged)

	records, err := s.idx.FindByDocument(s.ctx, "doc-a")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("Rewritten text after a major revision.", records[0].ChunkText)
	s.Equal(1, records[0].Ordinal)
}

func (s *PipelineTestSuite) TestLongDocumentProducesOrderedChunks() {
	var sentences []string
	for i := 1; i <= 12; i++ {
		sentences = append(sentences, fmt.Sprintf("Section %d describes one part of the system in detail.", i))
	}
	s.src.add("doc-long", "Long", time.Now().Add(-time.Hour), sentences...)

	stats, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Inserted)

	records, err := s.idx.FindByDocument(s.ctx, "doc-long")
	s.Require().NoError(err)
	s.Greater(len(records), 1, "should split into multiple chunks")

	for i, rec := range records {
		s.Equal(i+1, rec.Ordinal)
		s.Equal(fmt.Sprintf("doc-long#%d", i+1), rec.ChunkID)
		s.LessOrEqual(len(rec.ChunkText), 120)
	}

	// Chunk texts are slices of the extracted content.
	joined := strings.Join(sentences, " ")
	s.Contains(records[0].ChunkText, "Section 1")
	for _, rec := range records {
		s.Contains(joined, rec.ChunkText)
	}
}

func (s *PipelineTestSuite) TestSearchRanksExactChunkFirst() {
	edited := time.Now().Add(-time.Hour)
	s.src.add("doc-roadmap", "Roadmap", edited,
		"The platform roadmap covers ingestion and retrieval milestones.")
	s.src.add("doc-oncall", "Oncall Guide", edited,
		"Escalate paging incidents to the platform rotation first.")

	_, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)

	resp, err := s.searcher.Search(s.ctx, searcher.Request{
		Query: "Escalate paging incidents to the platform rotation first.",
		Limit: 5,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(resp.Results)
	s.Equal("doc-oncall", resp.Results[0].DocumentID)
	s.Equal(1, resp.Results[0].Rank)
	s.InDelta(1.0, resp.Results[0].Score, 1e-3)
}

func (s *PipelineTestSuite) TestWorkspaceBookkeepingAfterRun() {
	s.src.add("doc-a", "A", time.Now().Add(-time.Hour), "Some content worth indexing.")

	_, err := s.syncer.Run(s.ctx)
	s.Require().NoError(err)

	ws, err := s.idx.GetWorkspace(s.ctx)
	s.Require().NoError(err)
	s.Equal("integration", ws.Name)
	s.Equal(1, ws.TotalDocuments)
	s.Equal(1, ws.TotalChunks)
	s.False(ws.LastSyncedAt.IsZero())
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}
