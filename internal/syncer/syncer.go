// Package syncer drives the sync pipeline: enumerate documents, detect
// change, extract, chunk, embed, and reconcile the vector index.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/notionvec/notionvec/internal/chunker"
	"github.com/notionvec/notionvec/internal/embedder"
	"github.com/notionvec/notionvec/internal/extractor"
	"github.com/notionvec/notionvec/internal/index"
	"github.com/notionvec/notionvec/internal/source"
)

var (
	// ErrRunInProgress is returned when a sync run is already executing
	ErrRunInProgress = errors.New("sync run already in progress")
	// ErrEnumeration is returned when document enumeration fails entirely
	ErrEnumeration = errors.New("document enumeration failed")
)

// maxSearchPages bounds workspace enumeration so a source that keeps
// reporting more pages cannot spin the run forever.
const maxSearchPages = 10000

// Config contains configuration for the syncer
type Config struct {
	ChunkSize     int    // chunk size budget in bytes (default: 1000)
	EmbedWorkers  int    // concurrent embedding requests per document (default: 4)
	WorkspaceName string // label recorded in workspace bookkeeping
}

// Stats summarizes one sync run. Found counts every enumerated document;
// the five outcome counters partition the documents actually visited.
type Stats struct {
	RunID     string
	Found     int
	Inserted  int
	Updated   int
	Unchanged int
	NoContent int
	Failed    int
	Errors    []string
	Duration  time.Duration
}

// Syncer coordinates the sync pipeline for one workspace.
type Syncer struct {
	src    source.Source
	ext    *extractor.Extractor
	chk    *chunker.Chunker
	emb    embedder.Embedder
	idx    index.Index
	config Config
	lock   RunLock
	logger *log.Logger
}

// New creates a Syncer. A nil logger discards nothing; callers pass the
// process logger so progress lines land on stderr.
func New(src source.Source, emb embedder.Embedder, idx index.Index, config Config, logger *log.Logger) (*Syncer, error) {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.EmbedWorkers <= 0 {
		config.EmbedWorkers = 4
	}
	if logger == nil {
		logger = log.Default()
	}

	chk, err := chunker.New(config.ChunkSize)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		src:    src,
		ext:    extractor.New(src),
		chk:    chk,
		emb:    emb,
		idx:    idx,
		config: config,
		logger: logger,
	}, nil
}

// outcome classifies what one document's visit did to the index.
type outcome int

const (
	outcomeInserted outcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeNoContent
)

// Run executes one full sync pass. Per-document failures are counted and
// logged, never fatal; only total enumeration failure aborts the run.
func (s *Syncer) Run(ctx context.Context) (*Stats, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer s.lock.Release()

	start := time.Now()
	stats := &Stats{
		RunID:  uuid.NewString(),
		Errors: make([]string, 0),
	}

	ids, err := s.enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	stats.Found = len(ids)
	s.logger.Printf("sync %s: found %d documents", stats.RunID, stats.Found)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.syncDocument(ctx, id)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", id, err))
			s.logger.Printf("sync %s: document %s failed: %v", stats.RunID, id, err)
			continue
		}

		switch result {
		case outcomeInserted:
			stats.Inserted++
		case outcomeUpdated:
			stats.Updated++
		case outcomeUnchanged:
			stats.Unchanged++
		case outcomeNoContent:
			stats.NoContent++
		}
	}

	stats.Duration = time.Since(start)
	s.logger.Printf("sync %s: inserted=%d updated=%d unchanged=%d no-content=%d failed=%d in %s",
		stats.RunID, stats.Inserted, stats.Updated, stats.Unchanged,
		stats.NoContent, stats.Failed, stats.Duration.Round(time.Millisecond))

	s.recordWorkspace(ctx)
	return stats, nil
}

// enumerate collects every document ID in the workspace, following
// pagination to exhaustion under the hard page ceiling.
func (s *Syncer) enumerate(ctx context.Context) ([]string, error) {
	var ids []string
	cursor := ""
	for page := 0; ; page++ {
		if page >= maxSearchPages {
			return nil, fmt.Errorf("pagination exceeded %d pages", maxSearchPages)
		}
		batch, next, err := s.src.ListDocuments(ctx, cursor)
		if err != nil {
			return nil, err
		}
		ids = append(ids, batch...)
		if next == "" {
			return ids, nil
		}
		cursor = next
	}
}

// syncDocument runs the per-document stage of the pipeline and reports how
// the index changed.
func (s *Syncer) syncDocument(ctx context.Context, documentID string) (outcome, error) {
	doc, err := s.src.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	prior, err := s.idx.FindOne(ctx, documentID)
	if err != nil && !errors.Is(err, index.ErrNotFound) {
		return 0, err
	}
	if !NeedsSync(prior, doc.LastEditedTime) {
		return outcomeUnchanged, nil
	}

	extraction, err := s.ext.Extract(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if extraction.Content == "" {
		return outcomeNoContent, nil
	}

	spans := s.chk.Split(extraction.Content)
	records, err := s.embedChunks(ctx, doc, extraction.Content, spans)
	if err != nil {
		return 0, err
	}

	if prior == nil {
		if err := s.insertNew(ctx, documentID, records); err != nil {
			return 0, err
		}
		return outcomeInserted, nil
	}
	if err := s.replace(ctx, documentID, records); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

// embedChunks requests one embedding per chunk, concurrently up to the
// worker limit. A failed chunk is dropped; surviving records are renumbered
// so ordinals stay contiguous from 1. All chunks failing fails the document.
func (s *Syncer) embedChunks(ctx context.Context, doc *source.Document, content string, spans []chunker.Span) ([]*index.Record, error) {
	embeddings := make([]*embedder.Embedding, len(spans))
	failures := make([]error, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.EmbedWorkers)
	for i, span := range spans {
		g.Go(func() error {
			emb, err := s.emb.Embed(gctx, span.Text)
			if err != nil {
				failures[i] = err
				return nil // drop this chunk, keep the rest
			}
			embeddings[i] = emb
			return nil
		})
	}
	_ = g.Wait()

	// One marker for the whole document; all of its chunks must agree on
	// when they were synced.
	syncedAt := time.Now()

	records := make([]*index.Record, 0, len(spans))
	for i, span := range spans {
		if embeddings[i] == nil {
			s.logger.Printf("document %s: chunk %d dropped: %v", doc.ID, i+1, failures[i])
			continue
		}
		ordinal := len(records) + 1
		records = append(records, &index.Record{
			DocumentID:     doc.ID,
			ChunkID:        fmt.Sprintf("%s#%d", doc.ID, ordinal),
			Ordinal:        ordinal,
			Title:          doc.Title,
			URL:            doc.URL,
			RevisionMarker: doc.LastEditedTime,
			Archived:       doc.Archived,
			Properties:     doc.Properties,
			SyncedAt:       syncedAt,
			ContentText:    content,
			ChunkText:      span.Text,
			Provider:       embeddings[i].Provider,
			Model:          embeddings[i].Model,
			Dimension:      embeddings[i].Dimension,
			Vector:         embeddings[i].Vector,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("all %d chunk embeddings failed: %w", len(spans), firstError(failures))
	}
	return records, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return errors.New("no chunks produced")
}

// insertNew writes records for a document that had none. If an insert fails
// partway the already-written prefix is cleared; a half-indexed document
// would carry a fresh sync marker and never be revisited, so failure must
// leave zero chunks for the next run to recognize.
func (s *Syncer) insertNew(ctx context.Context, documentID string, records []*index.Record) error {
	if err := s.insertAll(ctx, records); err != nil {
		s.clearDocument(ctx, documentID)
		return err
	}
	return nil
}

func (s *Syncer) insertAll(ctx context.Context, records []*index.Record) error {
	for _, rec := range records {
		if err := s.idx.Insert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// replace deletes the document's old records then inserts the new set.
// The two steps are not atomic; if an insert fails partway the remaining
// new records are cleared so the document is left with zero chunks, a state
// the next run recognizes as needing a full sync.
func (s *Syncer) replace(ctx context.Context, documentID string, records []*index.Record) error {
	if _, err := s.idx.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.insertAll(ctx, records); err != nil {
		s.clearDocument(ctx, documentID)
		return err
	}
	return nil
}

// clearDocument removes whatever a failed write left behind.
func (s *Syncer) clearDocument(ctx context.Context, documentID string) {
	if _, err := s.idx.DeleteByDocument(ctx, documentID); err != nil {
		s.logger.Printf("document %s: cleanup after failed write also failed: %v", documentID, err)
	}
}

// recordWorkspace updates bookkeeping after a run. Best effort; a failure
// here does not fail the run.
func (s *Syncer) recordWorkspace(ctx context.Context) {
	docs, err := s.idx.CountDocuments(ctx)
	if err != nil {
		return
	}
	chunks, err := s.idx.Count(ctx)
	if err != nil {
		return
	}
	if err := s.idx.UpdateWorkspace(ctx, s.config.WorkspaceName, docs, chunks); err != nil {
		s.logger.Printf("workspace bookkeeping update failed: %v", err)
	}
}
