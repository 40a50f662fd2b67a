// Package search ranks stored memories against a query by fusing semantic
// (vector) and lexical (keyword) signals with a fixed weighting policy.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/memexhq/memex/store"
)

const (
	// VectorWeight and KeywordWeight are the fixed hybrid fusion weights.
	VectorWeight  = 0.7
	KeywordWeight = 0.3

	// HybridFloor is the similarity floor vector search uses inside hybrid
	// fusion; StandaloneFloor applies when vector search stands alone.
	HybridFloor     = 0.3
	StandaloneFloor = 0.5

	// keywordScoreStep is the synthetic per-position score decay for
	// keyword hits. The resulting scores give keyword results a sortable
	// magnitude, not a relevance measure.
	keywordScoreStep = 0.05
)

// Result is one ranked memory. The embedded record is a projection without
// its embedding vector.
type Result struct {
	store.MemoryRecord
	Score float64 `json:"score"`
}

// Engine ranks the store's records. Both search legs are full scans over a
// bounded personal collection (thousands of records, not millions); that
// O(n) per query is a stated scaling limit of the design.
type Engine struct {
	store  *store.Store
	index  *VectorIndex
	logger zerolog.Logger
}

// NewEngine creates a retrieval engine over the given store and index.
func NewEngine(st *store.Store, index *VectorIndex, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		index:  index,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

// Index returns the engine's vector index for lifecycle wiring (adds on
// insert, rebuilds after import).
func (e *Engine) Index() *VectorIndex { return e.index }

// VectorSearch returns up to limit records with cosine similarity to
// queryVec at or above floor, by descending score.
func (e *Engine) VectorSearch(ctx context.Context, queryVec []float32, limit int, floor float64) ([]Result, error) {
	hits, err := e.index.Query(ctx, queryVec, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		// Inverted comparison so a NaN score (zero-vector embedding
		// normalized by the index) never passes the floor.
		if !(hit.Score >= floor) {
			continue
		}
		rec, ok := e.store.Get(hit.ID)
		if !ok {
			// Index drifted ahead of the store; skip the orphan.
			e.logger.Debug().Str("id", hit.ID).Msg("indexed id missing from store")
			continue
		}
		rec.Embedding = nil
		results = append(results, Result{MemoryRecord: rec, Score: hit.Score})
	}
	return results, nil
}

// KeywordSearch scans every record for case-insensitive substring matches
// across title, content, summary and the joined tags. The linear scan is
// deliberate: term indexes tokenize non-ASCII scripts unreliably, so
// containment over the raw text is the dependable option. Matches keep
// store order and get a synthetic descending score (1 - index*0.05).
func (e *Engine) KeywordSearch(query string, limit int) []Result {
	needle := strings.ToLower(query)
	if needle == "" {
		return nil
	}

	var results []Result
	for _, rec := range e.store.Records() {
		if len(results) >= limit {
			break
		}
		if !matchesKeyword(rec, needle) {
			continue
		}
		rec.Embedding = nil
		results = append(results, Result{
			MemoryRecord: rec,
			Score:        1 - float64(len(results))*keywordScoreStep,
		})
	}
	return results
}

func matchesKeyword(rec store.MemoryRecord, needle string) bool {
	return strings.Contains(strings.ToLower(rec.Title), needle) ||
		strings.Contains(strings.ToLower(rec.Content), needle) ||
		strings.Contains(strings.ToLower(rec.Summary), needle) ||
		strings.Contains(strings.ToLower(strings.Join(rec.Tags, " ")), needle)
}

// HybridSearch runs vector search (hybrid floor) and keyword search
// concurrently, then fuses scores by id:
//
//	vector-only: score*0.7
//	keyword-only: score*0.3
//	both:        vector*0.7 + keyword*0.3
//
// The fused list is sorted descending and truncated to limit. Exact score
// ties break on CreatedAt descending, then ID, for deterministic output.
func (e *Engine) HybridSearch(ctx context.Context, query string, queryVec []float32, limit int) ([]Result, error) {
	var (
		vectorResults  []Result
		keywordResults []Result
		vectorErr      error
		wg             sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorResults, vectorErr = e.VectorSearch(ctx, queryVec, limit, HybridFloor)
	}()
	go func() {
		defer wg.Done()
		keywordResults = e.KeywordSearch(query, limit)
	}()
	wg.Wait()

	if vectorErr != nil {
		return nil, vectorErr
	}

	fused := make(map[string]*Result, len(vectorResults)+len(keywordResults))
	for _, res := range vectorResults {
		r := res
		r.Score = res.Score * VectorWeight
		fused[res.ID] = &r
	}
	for _, res := range keywordResults {
		if existing, ok := fused[res.ID]; ok {
			existing.Score += res.Score * KeywordWeight
		} else {
			r := res
			r.Score = res.Score * KeywordWeight
			fused[res.ID] = &r
		}
	}

	results := make([]Result, 0, len(fused))
	for _, r := range fused {
		results = append(results, *r)
	}
	sortResults(results)

	if len(results) > limit {
		results = results[:limit]
	}

	e.logger.Debug().
		Str("query", query).
		Int("vector_hits", len(vectorResults)).
		Int("keyword_hits", len(keywordResults)).
		Int("results", len(results)).
		Msg("hybrid search completed")

	return results, nil
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt > results[j].CreatedAt
		}
		return results[i].ID < results[j].ID
	})
}
