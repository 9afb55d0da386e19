// Package searcher is the read path: it embeds a query and ranks indexed
// chunk records by vector similarity.
package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/notionvec/notionvec/internal/embedder"
	"github.com/notionvec/notionvec/internal/index"
)

// Request contains parameters for a search operation
type Request struct {
	Query    string
	Limit    int
	UseCache bool
	CacheTTL time.Duration
}

// Result is one ranked hit.
type Result struct {
	DocumentID string
	ChunkID    string
	Ordinal    int
	Title      string
	URL        string
	ChunkText  string
	Score      float64
	Rank       int
}

// Response contains search results and metadata
type Response struct {
	Results      []Result
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher runs vector similarity searches against the index.
type Searcher struct {
	idx     index.Index
	emb     embedder.Embedder
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// New creates a Searcher instance.
func New(idx index.Index, emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// Only possible with an invalid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{
		idx:   idx,
		emb:   emb,
		cache: cache,
	}
}

// Search embeds the query and returns matching chunks ranked by cosine
// similarity.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	emb, err := s.emb.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	matches, err := s.idx.SearchVector(ctx, emb.Vector, req.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			DocumentID: m.Record.DocumentID,
			ChunkID:    m.Record.ChunkID,
			Ordinal:    m.Record.Ordinal,
			Title:      m.Record.Title,
			URL:        m.Record.URL,
			ChunkText:  m.Record.ChunkText,
			Score:      m.Similarity,
			Rank:       i + 1,
		}
	}

	response := &Response{
		Results:      results,
		TotalResults: len(results),
		Duration:     time.Since(startTime),
	}

	if req.UseCache && len(results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// InvalidateCache clears all cached queries. Called after a sync run so
// searches see the fresh index.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *Request) error {
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
	return nil
}

// checkCache looks up a cached response, pruning expired entries.
func (s *Searcher) checkCache(req Request) *Response {
	hash := queryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves a response copy with its expiration time.
func (s *Searcher) storeInCache(req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(queryHash(req), entry)
	s.cacheMu.Unlock()
}

// copyResponse creates a copy so cached entries cannot be mutated by
// callers. Result holds only value fields, so a slice copy suffices.
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := &Response{
		TotalResults: src.TotalResults,
		Duration:     src.Duration,
		CacheHit:     src.CacheHit,
		Results:      make([]Result, len(src.Results)),
	}
	copy(dst.Results, src.Results)
	return dst
}

// queryHash computes a stable hash for a search request
func queryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d", req.Limit))
	return sha256.Sum256([]byte(data.String()))
}
