package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/notionvec/notionvec/internal/source"
)

// memorySource is an in-memory source.Source for pipeline tests. Documents
// keep enumeration order; paragraph blocks are generated from plain strings.
type memorySource struct {
	order  []string
	docs   map[string]*source.Document
	blocks map[string][]source.Block
}

func newMemorySource() *memorySource {
	return &memorySource{
		docs:   make(map[string]*source.Document),
		blocks: make(map[string][]source.Block),
	}
}

func (m *memorySource) add(id, title string, edited time.Time, texts ...string) {
	if _, exists := m.docs[id]; !exists {
		m.order = append(m.order, id)
	}
	m.docs[id] = &source.Document{
		ID:             id,
		Title:          title,
		URL:            "https://notion.so/" + id,
		LastEditedTime: edited,
		Properties:     map[string]any{"Team": "platform"},
	}
	blocks := make([]source.Block, 0, len(texts))
	for i, text := range texts {
		blocks = append(blocks, source.Block{
			ID:   fmt.Sprintf("%s-b%d", id, i),
			Type: "paragraph",
			Text: text,
		})
	}
	m.blocks[id] = blocks
}

// touch bumps a document's revision marker and replaces its block texts.
func (m *memorySource) touch(id string, edited time.Time, texts ...string) {
	doc := m.docs[id]
	m.add(id, doc.Title, edited, texts...)
}

func (m *memorySource) ListDocuments(_ context.Context, cursor string) ([]string, string, error) {
	if cursor != "" {
		return nil, "", fmt.Errorf("unexpected cursor %q", cursor)
	}
	return append([]string(nil), m.order...), "", nil
}

func (m *memorySource) GetDocument(_ context.Context, id string) (*source.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown document %s", source.ErrFetch, id)
	}
	return doc, nil
}

func (m *memorySource) ListBlocks(_ context.Context, documentID, cursor string) ([]source.Block, string, error) {
	if cursor != "" {
		return nil, "", fmt.Errorf("unexpected cursor %q", cursor)
	}
	return append([]source.Block(nil), m.blocks[documentID]...), "", nil
}
