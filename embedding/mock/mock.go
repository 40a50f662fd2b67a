// Package mock provides a deterministic embedder for tests. Vectors are
// seeded from a hash of the input text, so identical texts always embed
// identically without any model runtime.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/memexhq/memex/embedding"
)

// Embedder generates hash-seeded pseudo-random unit vectors.
type Embedder struct {
	dims int
	fail error
}

// New creates a mock embedder with the standard dimension.
func New() *Embedder {
	return &Embedder{dims: embedding.Dimension}
}

// NewWithDims creates a mock embedder with a custom dimension.
func NewWithDims(dims int) *Embedder {
	return &Embedder{dims: dims}
}

// NewFailing creates a mock embedder whose Embed always returns err.
func NewFailing(err error) *Embedder {
	return &Embedder{dims: embedding.Dimension, fail: err}
}

// Embed creates a deterministic embedding from the text hash, expanded
// through a linear congruential generator and normalized to unit length.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.fail != nil {
		return nil, m.fail
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return embedding.Normalize(vec), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dims
}
