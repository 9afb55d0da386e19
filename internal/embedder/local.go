package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const localDimension = 384

// LocalEmbedder produces deterministic vectors derived from a content hash.
// It needs no network and exists for tests and offline smoke runs. The
// vectors are not semantically meaningful.
type LocalEmbedder struct {
	cache *Cache
}

// NewLocalEmbedder creates a deterministic offline embedder.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{cache: NewCache(10000)}
}

// Embed generates a deterministic embedding for a single text.
func (e *LocalEmbedder) Embed(_ context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if cached, ok := e.cache.Get(hash); ok {
		return cached, nil
	}

	vector := deterministicVector(text, localDimension)

	emb := &Embedding{
		Vector:    vector,
		Dimension: localDimension,
		Provider:  "local",
		Model:     "deterministic-v1",
		Hash:      hash,
	}
	e.cache.Set(hash, emb)
	return emb, nil
}

// deterministicVector expands the text hash into a unit vector. Each group
// of four hash bytes seeds one component; the hash is re-digested when the
// dimension outruns a single digest.
func deterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	digest := sha256.Sum256([]byte(text))

	buf := digest[:]
	for i := 0; i < dim; i++ {
		if len(buf) < 4 {
			next := sha256.Sum256(buf)
			buf = next[:]
		}
		bits := binary.LittleEndian.Uint32(buf[:4])
		buf = buf[4:]
		// Map to [-1, 1).
		vector[i] = float32(bits)/float32(math.MaxUint32)*2 - 1
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector
}

// Dimension returns the embedding dimension.
func (e *LocalEmbedder) Dimension() int { return localDimension }

// Provider returns the provider name.
func (e *LocalEmbedder) Provider() string { return "local" }

// Model returns the model identifier.
func (e *LocalEmbedder) Model() string { return "deterministic-v1" }

// Close releases resources.
func (e *LocalEmbedder) Close() error { return nil }
