package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/notionvec/notionvec/internal/backoff"
)

const (
	defaultOpenAIModel     = "text-embedding-3-small"
	defaultOpenAIDimension = 1536
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	cache     *Cache
	retry     backoff.Config
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. Model defaults to
// text-embedding-3-small when empty.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key required", ErrProviderFailed)
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		model:     model,
		dimension: defaultOpenAIDimension,
		cache:     NewCache(10000),
		retry:     backoff.DefaultConfig(),
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if cached, ok := e.cache.Get(hash); ok {
		return cached, nil
	}

	vector, err := backoff.Do(ctx, e.retry, func() ([]float32, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: empty response", ErrProviderFailed)
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, err
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  "openai",
		Model:     e.model,
		Hash:      hash,
	}
	e.cache.Set(hash, emb)
	return emb, nil
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Provider returns the provider name.
func (e *OpenAIEmbedder) Provider() string { return "openai" }

// Model returns the model identifier.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Close releases resources.
func (e *OpenAIEmbedder) Close() error { return nil }
