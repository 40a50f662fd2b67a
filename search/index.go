package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
)

const collectionName = "memories"

// Hit is one vector index match.
type Hit struct {
	ID    string
	Score float64
}

// VectorIndex wraps chromem-go, a pure Go embedded vector database, as the
// similarity side of retrieval. The index is derived state: it is rebuilt
// from the store's records after load or import, so it never needs its own
// persistence.
type VectorIndex struct {
	db     *chromem.DB
	logger zerolog.Logger

	mu  sync.RWMutex
	col *chromem.Collection
}

// NewVectorIndex creates an empty index.
func NewVectorIndex(logger zerolog.Logger) (*VectorIndex, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &VectorIndex{
		db:     db,
		logger: logger.With().Str("component", "vector-index").Logger(),
		col:    col,
	}, nil
}

// Add indexes one record's embedding under its id. Zero vectors (the
// defined embedding of empty input) are not indexable: normalizing one
// yields NaN similarities, so they are skipped and the record stays
// reachable through keyword search only.
func (v *VectorIndex) Add(ctx context.Context, id string, vec []float32) error {
	if isZeroVector(vec) {
		return nil
	}

	v.mu.RLock()
	col := v.col
	v.mu.RUnlock()

	err := col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Content:   id,
		Embedding: vec,
	})
	if err != nil {
		return fmt.Errorf("index add: %w", err)
	}
	return nil
}

// Remove drops one record from the index.
func (v *VectorIndex) Remove(ctx context.Context, id string) error {
	v.mu.RLock()
	col := v.col
	v.mu.RUnlock()

	return col.Delete(ctx, nil, nil, id)
}

// Query returns up to limit hits by descending cosine similarity.
// chromem-go rejects result counts above the collection size, so the limit
// shrinks until the query succeeds; an empty collection yields no hits.
func (v *VectorIndex) Query(ctx context.Context, vec []float32, limit int) ([]Hit, error) {
	v.mu.RLock()
	col := v.col
	v.mu.RUnlock()

	if count := col.Count(); count < limit {
		limit = count
	}
	if limit <= 0 {
		return nil, nil
	}

	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, vec, currentLimit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("index query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Hit{ID: res.ID, Score: float64(res.Similarity)})
	}
	return hits, nil
}

// Rebuild replaces the whole index with the given id->embedding set. Used
// after store load and after backup import.
func (v *VectorIndex) Rebuild(ctx context.Context, embeddings map[string][]float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	col, err := v.db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	v.col = col

	for id, vec := range embeddings {
		if isZeroVector(vec) {
			continue
		}
		err := col.AddDocument(ctx, chromem.Document{ID: id, Content: id, Embedding: vec})
		if err != nil {
			return fmt.Errorf("reindex %s: %w", id, err)
		}
	}

	v.logger.Debug().Int("records", len(embeddings)).Msg("vector index rebuilt")
	return nil
}

// Count returns the number of indexed records.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.col.Count()
}

// isZeroVector reports whether vec is empty or has no nonzero component.
func isZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// isInsufficientDocsError matches chromem's complaint when nResults
// exceeds the collection size.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
