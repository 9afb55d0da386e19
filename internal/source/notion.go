package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/notionvec/notionvec/internal/backoff"
)

const defaultPageSize = 100

// ErrMissingToken is returned when the Notion integration token is empty.
var ErrMissingToken = errors.New("notion token is required")

// Notion implements Source against the Notion API via jomei/notionapi.
type Notion struct {
	client   *notionapi.Client
	pageSize int
	retry    backoff.Config
}

// NewNotion creates a Notion source for the given integration token.
func NewNotion(token string) (*Notion, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return &Notion{
		client:   notionapi.NewClient(notionapi.Token(token)),
		pageSize: defaultPageSize,
		retry:    backoff.DefaultConfig(),
	}, nil
}

// ListDocuments returns one page of page ids visible to the integration.
func (n *Notion) ListDocuments(ctx context.Context, cursor string) ([]string, string, error) {
	req := &notionapi.SearchRequest{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    n.pageSize,
		Filter: notionapi.SearchFilter{
			Value:    "page",
			Property: "object",
		},
	}

	resp, err := backoff.Do(ctx, n.retry, func() (*notionapi.SearchResponse, error) {
		return n.client.Search.Do(ctx, req)
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: search: %v", ErrFetch, err)
	}

	ids := make([]string, 0, len(resp.Results))
	for _, obj := range resp.Results {
		page, ok := obj.(*notionapi.Page)
		if !ok {
			continue
		}
		ids = append(ids, string(page.ID))
	}

	next := ""
	if resp.HasMore {
		next = string(resp.NextCursor)
	}
	return ids, next, nil
}

// GetDocument fetches a page and decodes its typed properties.
func (n *Notion) GetDocument(ctx context.Context, id string) (*Document, error) {
	page, err := backoff.Do(ctx, n.retry, func() (*notionapi.Page, error) {
		return n.client.Page.Get(ctx, notionapi.PageID(id))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get page %s: %v", ErrFetch, id, err)
	}

	props := decodeProperties(page.Properties)
	return &Document{
		ID:             string(page.ID),
		Title:          titleOf(page.Properties),
		URL:            page.URL,
		CreatedTime:    page.CreatedTime,
		LastEditedTime: page.LastEditedTime,
		Archived:       page.Archived,
		Properties:     props,
	}, nil
}

// ListBlocks returns one page of a document's child blocks.
func (n *Notion) ListBlocks(ctx context.Context, documentID, cursor string) ([]Block, string, error) {
	pagination := &notionapi.Pagination{
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    n.pageSize,
	}

	resp, err := backoff.Do(ctx, n.retry, func() (*notionapi.GetChildrenResponse, error) {
		return n.client.Block.GetChildren(ctx, notionapi.BlockID(documentID), pagination)
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: list blocks for %s: %v", ErrFetch, documentID, err)
	}

	blocks := make([]Block, 0, len(resp.Results))
	for _, b := range resp.Results {
		blocks = append(blocks, blockFromNotion(b))
	}

	next := ""
	if resp.HasMore {
		next = resp.NextCursor
	}
	return blocks, next, nil
}

// blockFromNotion flattens a Notion block into a plain Block. Types without
// rich text content come back with empty Text but are never dropped.
func blockFromNotion(b notionapi.Block) Block {
	block := Block{
		ID:   string(b.GetID()),
		Type: string(b.GetType()),
	}

	switch v := b.(type) {
	case *notionapi.ParagraphBlock:
		block.Text = plainText(v.Paragraph.RichText)
	case *notionapi.Heading1Block:
		block.Text = plainText(v.Heading1.RichText)
	case *notionapi.Heading2Block:
		block.Text = plainText(v.Heading2.RichText)
	case *notionapi.Heading3Block:
		block.Text = plainText(v.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		block.Text = plainText(v.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		block.Text = plainText(v.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		block.Text = plainText(v.ToDo.RichText)
		checked := v.ToDo.Checked
		block.Checked = &checked
	case *notionapi.CodeBlock:
		block.Text = plainText(v.Code.RichText)
		block.Language = v.Code.Language
	case *notionapi.QuoteBlock:
		block.Text = plainText(v.Quote.RichText)
	case *notionapi.CalloutBlock:
		block.Text = plainText(v.Callout.RichText)
	case *notionapi.BookmarkBlock:
		block.URL = v.Bookmark.URL
	}

	return block
}

// decodeProperties converts Notion's typed property map into plain values.
// Property types without a dedicated decoding keep their string rendering so
// no property is silently lost.
func decodeProperties(props notionapi.Properties) map[string]any {
	if len(props) == 0 {
		return nil
	}

	out := make(map[string]any, len(props))
	for name, prop := range props {
		switch v := prop.(type) {
		case *notionapi.TitleProperty:
			out[name] = plainText(v.Title)
		case *notionapi.RichTextProperty:
			out[name] = plainText(v.RichText)
		case *notionapi.NumberProperty:
			out[name] = v.Number
		case *notionapi.SelectProperty:
			out[name] = v.Select.Name
		case *notionapi.MultiSelectProperty:
			names := make([]string, 0, len(v.MultiSelect))
			for _, opt := range v.MultiSelect {
				names = append(names, opt.Name)
			}
			out[name] = names
		case *notionapi.DateProperty:
			if v.Date != nil && v.Date.Start != nil {
				out[name] = time.Time(*v.Date.Start).Format(time.RFC3339)
			} else {
				out[name] = nil
			}
		case *notionapi.CheckboxProperty:
			out[name] = v.Checkbox
		case *notionapi.URLProperty:
			out[name] = v.URL
		case *notionapi.EmailProperty:
			out[name] = v.Email
		case *notionapi.PhoneNumberProperty:
			out[name] = v.PhoneNumber
		default:
			out[name] = fmt.Sprintf("%v", prop)
		}
	}
	return out
}

// titleOf resolves a page title from the title-typed property, falling back
// to "Untitled" when the page has none.
func titleOf(props notionapi.Properties) string {
	for _, prop := range props {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			if title := plainText(tp.Title); title != "" {
				return title
			}
		}
	}
	return "Untitled"
}

func plainText(parts []notionapi.RichText) string {
	var text string
	for _, part := range parts {
		text += part.PlainText
	}
	return text
}
