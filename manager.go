// Package memex is a local-first memory layer: it remembers pages a user
// has read and retrieves the most relevant ones for natural-language
// queries via hybrid vector + keyword search.
//
// The Manager is the caller-facing facade. It owns no hidden global state;
// the application root constructs one and injects its collaborators:
//
//	persister, _ := store.OpenBolt(path)
//	st, _ := store.Open(persister, embedding.Dimension, logger)
//	index, _ := search.NewVectorIndex(logger)
//	svc := embedding.NewService(factory, embedding.ServiceConfig{Logger: logger})
//	mgr, _ := memex.NewManager(st, svc, search.NewEngine(st, index, logger), nil, logger)
//
// or use Open for the assembled default stack.
package memex

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/memexhq/memex/backup"
	"github.com/memexhq/memex/embedding"
	"github.com/memexhq/memex/search"
	"github.com/memexhq/memex/store"
)

// Page is the input to RememberPage.
type Page struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// RememberResult reports a remember operation. Failures (duplicate URL,
// embedding unavailable) come back as Success=false with a message rather
// than an error, so a UI can always render something.
type RememberResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Manager orchestrates the store, embedder and retrieval engine.
type Manager struct {
	store      *store.Store
	embeddings *embedding.Service
	engine     *search.Engine
	config     *Config
	logger     zerolog.Logger

	closer func() error
}

// NewManager wires a Manager from its collaborators and seeds the vector
// index from the store's persisted records.
func NewManager(st *store.Store, embeddings *embedding.Service, engine *search.Engine, config *Config, logger zerolog.Logger) (*Manager, error) {
	if config == nil {
		config = DefaultConfig
	}

	m := &Manager{
		store:      st,
		embeddings: embeddings,
		engine:     engine,
		config:     config,
		logger:     logger.With().Str("component", "memex").Logger(),
	}

	if err := m.rebuildIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("seed vector index: %w", err)
	}
	return m, nil
}

// Open assembles the default stack: bbolt persistence, chromem vector
// index and an embedding service around the given factory.
func Open(dbPath string, factory embedding.Factory, config *Config, logger zerolog.Logger) (*Manager, error) {
	if config == nil {
		config = DefaultConfig
	}

	persister, err := store.OpenBolt(dbPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(persister, config.Dims, logger)
	if err != nil {
		persister.Close()
		return nil, err
	}

	index, err := search.NewVectorIndex(logger)
	if err != nil {
		persister.Close()
		return nil, err
	}

	svc := embedding.NewService(factory, embedding.ServiceConfig{
		Dims:   config.Dims,
		Logger: logger,
	})

	m, err := NewManager(st, svc, search.NewEngine(st, index, logger), config, logger)
	if err != nil {
		persister.Close()
		return nil, err
	}
	m.closer = persister.Close
	return m, nil
}

// Close releases the persistence layer when the Manager was built by Open.
func (m *Manager) Close() error {
	if m.closer != nil {
		return m.closer()
	}
	return nil
}

// InitEmbedder initializes the embedding runtime. Safe to call repeatedly;
// concurrent calls share one in-flight initialization. When it fails,
// recall degrades to keyword-only search rather than erroring.
func (m *Manager) InitEmbedder(ctx context.Context) error {
	return m.embeddings.Init(ctx)
}

// RememberPage dedup-checks the URL, embeds the content and inserts a new
// record. The embedding is computed first so the record is constructed and
// persisted atomically.
func (m *Manager) RememberPage(ctx context.Context, page Page) RememberResult {
	if page.URL == "" || page.Content == "" {
		return RememberResult{Success: false, Message: "url and content are required"}
	}

	if m.store.ExistsByURL(page.URL) {
		return RememberResult{Success: false, Message: fmt.Sprintf("already remembered: %s", page.URL)}
	}

	vec, err := m.embeddings.EmbedDocument(ctx, page.Content)
	if err != nil {
		m.logger.Warn().Err(err).Str("url", page.URL).Msg("remember failed at embedding")
		return RememberResult{Success: false, Message: fmt.Sprintf("embedding failed: %v", err)}
	}

	id, err := m.store.Insert(store.MemoryRecord{
		URL:       page.URL,
		Title:     page.Title,
		Content:   page.Content,
		Summary:   page.Summary,
		Tags:      page.Tags,
		Embedding: vec,
	})
	if err != nil {
		return RememberResult{Success: false, Message: fmt.Sprintf("store insert failed: %v", err)}
	}

	if err := m.engine.Index().Add(ctx, id, vec); err != nil {
		// The index is derived state; keyword search still covers the
		// record and the index heals on next rebuild.
		m.logger.Warn().Err(err).Str("id", id).Msg("vector index add failed")
	}

	m.logger.Info().Str("id", id).Str("url", page.URL).Strs("tags", page.Tags).Msg("memory added")
	return RememberResult{Success: true, ID: id, Message: fmt.Sprintf("remembered: %s", page.Title)}
}

// RecallMemories retrieves the most relevant memories for a query. The
// fallback chain never hard-fails the caller: embedder not ready or any
// hybrid failure degrades to keyword search, and in the worst case the
// result is an empty list.
func (m *Manager) RecallMemories(ctx context.Context, query string, limit int) []search.Result {
	if limit <= 0 {
		limit = m.config.RecallLimit
	}

	if !m.embeddings.Ready() {
		m.logger.Debug().Msg("embedder not ready, keyword-only recall")
		return m.keywordFallback(query, limit)
	}

	queryVec, err := m.embeddings.EmbedText(ctx, query)
	if err != nil {
		m.logger.Warn().Err(err).Msg("query embedding failed, falling back to keyword search")
		return m.keywordFallback(query, limit)
	}

	results, err := m.engine.HybridSearch(ctx, query, queryVec, limit)
	if err != nil {
		m.logger.Warn().Err(err).Msg("hybrid search failed, falling back to keyword search")
		return m.keywordFallback(query, limit)
	}
	if results == nil {
		results = []search.Result{}
	}
	return results
}

func (m *Manager) keywordFallback(query string, limit int) []search.Result {
	results := m.engine.KeywordSearch(query, limit)
	if results == nil {
		return []search.Result{}
	}
	return results
}

// ListMemories returns all memories as summary projections, newest first.
func (m *Manager) ListMemories() []store.MemoryRecord {
	return m.store.GetAll()
}

// MemoriesWithEmbeddings returns all memories with their vectors, newest
// first, for visualization collaborators.
func (m *Manager) MemoriesWithEmbeddings() []store.MemoryRecord {
	return m.store.GetAllWithEmbeddings()
}

// ForgetMemory removes one memory by id. Reports whether anything was
// removed.
func (m *Manager) ForgetMemory(ctx context.Context, id string) bool {
	if !m.store.Delete(id) {
		return false
	}
	if err := m.engine.Index().Remove(ctx, id); err != nil {
		m.logger.Warn().Err(err).Str("id", id).Msg("vector index remove failed")
	}
	m.logger.Info().Str("id", id).Msg("memory deleted")
	return true
}

// ForgetAll clears the store and the vector index.
func (m *Manager) ForgetAll(ctx context.Context) error {
	m.store.ClearAll()
	if err := m.engine.Index().Rebuild(ctx, nil); err != nil {
		return err
	}
	m.logger.Info().Msg("all memories cleared")
	return nil
}

// Count returns the number of stored memories.
func (m *Manager) Count() int {
	return m.store.Count()
}

// ExportMemories captures the full store as a portable snapshot.
func (m *Manager) ExportMemories() backup.Snapshot {
	return backup.Export(m.store)
}

// ImportMemories restores a snapshot with the given conflict policy, then
// rebuilds the vector index to match the new store contents.
func (m *Manager) ImportMemories(ctx context.Context, snapshot backup.Snapshot, mode backup.Mode) backup.Result {
	result := backup.Import(m.store, snapshot, mode, m.logger)
	if !result.Success {
		return result
	}

	if err := m.rebuildIndex(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("vector index rebuild after import failed")
	}
	return result
}

func (m *Manager) rebuildIndex(ctx context.Context) error {
	records := m.store.Records()
	embeddings := make(map[string][]float32, len(records))
	for _, rec := range records {
		embeddings[rec.ID] = rec.Embedding
	}
	return m.engine.Index().Rebuild(ctx, embeddings)
}
