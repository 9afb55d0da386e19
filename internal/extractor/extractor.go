// Package extractor normalizes a document's nested content blocks into a
// single ordered text string while retaining every block record, including
// those of unsupported types, for auditability.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/notionvec/notionvec/internal/source"
)

// maxBlockPages bounds block pagination so a source that always returns a
// continuation token cannot loop the run forever.
const maxBlockPages = 1000

// contentTypes are the block types whose text contributes to the normalized
// content. Anything else is retained as an inert record.
var contentTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
	"code":               true,
	"quote":              true,
	"callout":            true,
}

// Extraction is the normalized view of one document's content.
type Extraction struct {
	// Content is the whitespace-joined concatenation of all content-bearing
	// blocks' text, in source order.
	Content string

	// Blocks retains every fetched block, content-bearing or not.
	Blocks []source.Block
}

// Extractor fetches and normalizes document content from a Source.
type Extractor struct {
	src source.Source
}

// New creates an Extractor reading from src.
func New(src source.Source) *Extractor {
	return &Extractor{src: src}
}

// Extract follows block pagination to exhaustion and returns the document's
// normalized content. An incomplete page fetch fails this document only.
func (e *Extractor) Extract(ctx context.Context, documentID string) (*Extraction, error) {
	var blocks []source.Block
	cursor := ""

	for page := 0; ; page++ {
		if page >= maxBlockPages {
			return nil, fmt.Errorf("%w: block pagination for %s exceeded %d pages", source.ErrFetch, documentID, maxBlockPages)
		}

		batch, next, err := e.src.ListBlocks(ctx, documentID, cursor)
		if err != nil {
			return nil, fmt.Errorf("list blocks for %s: %w", documentID, err)
		}
		blocks = append(blocks, batch...)

		if next == "" {
			break
		}
		cursor = next
	}

	return &Extraction{
		Content: normalize(blocks),
		Blocks:  blocks,
	}, nil
}

// normalize joins the text of content-bearing blocks with single spaces,
// preserving block order exactly.
func normalize(blocks []source.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if !contentTypes[b.Type] {
			continue
		}
		if b.Text == "" {
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}
