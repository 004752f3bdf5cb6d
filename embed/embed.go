// Package embed defines the embedding provider interface and adapters used to
// turn text into vectors for the similarity index.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed returns the embedding for a single piece of text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed embedding dimension
	Dimension() int
}

// LangChainEmbedder adapts langchaingo's embeddings.Embedder to the Embedder
// interface
type LangChainEmbedder struct {
	embedder  embeddings.Embedder
	dimension int
}

// NewLangChainEmbedder creates an adapter over a langchaingo embedder. The
// dimension must match what the underlying model produces.
func NewLangChainEmbedder(embedder embeddings.Embedder, dimension int) *LangChainEmbedder {
	return &LangChainEmbedder{
		embedder:  embedder,
		dimension: dimension,
	}
}

// Embed embeds a single piece of text using the underlying langchaingo embedder
func (l *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("langchain embed query: %w", err)
	}

	result := make([]float32, len(embedding))
	for i, val := range embedding {
		result[i] = float32(val)
	}

	if l.dimension > 0 && len(result) != l.dimension {
		return nil, fmt.Errorf("embedder returned dimension %d, expected %d", len(result), l.dimension)
	}
	return result, nil
}

// Dimension returns the configured embedding dimension
func (l *LangChainEmbedder) Dimension() int {
	return l.dimension
}

// HashEmbedder is a deterministic embedder that hashes word tokens into a
// fixed-size vector. It needs no model or network access, which makes it
// useful for tests and for offline centroid computation. Texts sharing words
// get similar vectors; it is not a substitute for a learned embedding model.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder with the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed hashes each lowercase token into a bucket and L2-normalizes the result
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		sum := hasher.Sum32()
		bucket := int(sum % uint32(h.dimension))
		// Alternate sign from a hash bit so unrelated tokens cancel rather
		// than accumulate.
		if sum&0x80000000 != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Dimension returns the configured embedding dimension
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}
