package source

import (
	"context"
	"errors"
	"time"
)

// ErrFetch wraps any read, auth, or pagination failure against the document
// source. It aborts only the affected document, never the run.
var ErrFetch = errors.New("source fetch failed")

// Document is a unit of hierarchical content owned by the source. It is
// read-only to this system and fetched fresh on every run.
type Document struct {
	ID             string
	Title          string
	URL            string
	CreatedTime    time.Time
	LastEditedTime time.Time
	Archived       bool
	Properties     map[string]any
}

// Block is a typed content fragment inside a document. Unsupported block
// types carry empty Text but are retained so the block count stays auditable.
type Block struct {
	ID       string
	Type     string
	Text     string
	Checked  *bool  // to_do blocks only
	Language string // code blocks only
	URL      string // bookmark blocks only
}

// Source is the read-only document source collaborator. Cursor values are
// opaque continuation tokens; an empty next cursor signals the last page.
type Source interface {
	// ListDocuments returns one page of document ids plus a continuation
	// token for the next page.
	ListDocuments(ctx context.Context, cursor string) (ids []string, next string, err error)

	// GetDocument fetches a document with its decoded properties.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// ListBlocks returns one page of the document's content blocks in
	// source order, plus a continuation token.
	ListBlocks(ctx context.Context, documentID, cursor string) (blocks []Block, next string, err error)
}
