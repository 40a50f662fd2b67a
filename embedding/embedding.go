// Package embedding converts text into fixed-dimension semantic vectors.
//
// The package is built around a small Embedder interface so the actual
// runtime can be swapped:
//   - onnx: local all-MiniLM-L6-v2 via ONNX Runtime (build tag "onnx")
//   - worker: a sandboxed embedder process reached over a message channel
//   - mock: deterministic hash-seeded vectors for tests
//
// Service layers document chunking, averaging and caching on top of a raw
// Embedder.
package embedding

import (
	"context"
	"errors"
	"math"
)

// Dimension is the embedding vector size for all-MiniLM-L6-v2.
const Dimension = 384

var (
	// ErrUnavailable means the embedding runtime is not initialized or its
	// initialization failed. Callers should fall back to keyword retrieval.
	ErrUnavailable = errors.New("embedding runtime unavailable")

	// ErrTimeout means a single embedding request exceeded its deadline.
	ErrTimeout = errors.New("embedding request timed out")
)

// Embedder converts text to a vector embedding.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Normalize converts a vector to unit length. The zero vector is returned
// unchanged.
func Normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}

	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}

	return normalized
}

// Average returns the component-wise mean of the vectors, renormalized to
// unit length. An empty input yields a zero vector of size dims; this is a
// defined edge case, not an error.
func Average(vectors [][]float32, dims int) []float32 {
	if len(vectors) == 0 {
		return make([]float32, dims)
	}
	if len(vectors) == 1 {
		return vectors[0]
	}

	avg := make([]float32, dims)
	for _, vec := range vectors {
		for i := 0; i < dims && i < len(vec); i++ {
			avg[i] += vec[i]
		}
	}
	n := float32(len(vectors))
	for i := range avg {
		avg[i] /= n
	}

	return Normalize(avg)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
