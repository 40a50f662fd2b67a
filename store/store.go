// Package store is the durable collection of memory records. The whole
// store serializes to one JSON blob that is flushed to a key-value
// persister after every mutating operation and rehydrated on open. JSON
// round-trips float vectors exactly, so one encoding serves both the
// persisted state and the backup interchange format.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stateVersion tags the persisted blob layout.
const stateVersion = 1

// state is the serialized shape of the whole store.
type state struct {
	Version int            `json:"version"`
	Records []MemoryRecord `json:"records"`
}

// Store holds memory records in insertion order. All operations are safe
// for concurrent use. Flush failures are logged and swallowed: the
// in-memory state stays authoritative and durability catches up on the
// next successful flush.
type Store struct {
	persister Persister
	dims      int
	logger    zerolog.Logger

	mu      sync.RWMutex
	records []MemoryRecord
	byID    map[string]int
}

// Open loads the store from the persister, or starts empty when nothing is
// persisted yet. A corrupt blob is logged and replaced by an empty store
// rather than failing open.
func Open(p Persister, dims int, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		persister: p,
		dims:      dims,
		logger:    logger.With().Str("component", "store").Logger(),
		byID:      make(map[string]int),
	}

	blob, found, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if !found {
		s.logger.Info().Msg("no persisted store, starting empty")
		return s, nil
	}

	var st state
	if err := json.Unmarshal(blob, &st); err != nil {
		s.logger.Error().Err(err).Msg("persisted store is corrupt, starting empty")
		return s, nil
	}

	s.records = st.Records
	for i, rec := range s.records {
		s.byID[rec.ID] = i
	}
	s.logger.Info().Int("records", len(s.records)).Msg("store loaded")
	return s, nil
}

// Insert adds a record, assigning ID and CreatedAt when absent, and
// flushes before returning. Content is truncated to MaxContentLen. Returns
// the record id.
func (s *Store) Insert(rec MemoryRecord) (string, error) {
	rec = rec.clone()
	if rec.ID == "" {
		rec.ID = "mem_" + uuid.NewString()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	rec.Content = truncateContent(rec.Content)
	if s.dims > 0 && len(rec.Embedding) != s.dims {
		return "", fmt.Errorf("embedding dimension %d, want %d", len(rec.Embedding), s.dims)
	}

	s.mu.Lock()
	if _, exists := s.byID[rec.ID]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("duplicate record id %q", rec.ID)
	}
	s.records = append(s.records, rec)
	s.byID[rec.ID] = len(s.records) - 1
	s.mu.Unlock()

	s.flush()
	return rec.ID, nil
}

// Delete removes the record with the given id and flushes. Reports whether
// a record was actually removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	idx, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.records); i++ {
		s.byID[s.records[i].ID] = i
	}
	s.mu.Unlock()

	s.flush()
	return true
}

// GetAll returns summary projections (no content, no embeddings) sorted by
// CreatedAt descending.
func (s *Store) GetAll() []MemoryRecord {
	s.mu.RLock()
	out := make([]MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.summary())
	}
	s.mu.RUnlock()

	sortByCreatedAtDesc(out)
	return out
}

// GetAllWithEmbeddings returns summary projections plus embeddings, sorted
// by CreatedAt descending. Vectors come straight from the persisted
// records; the JSON state round-trips them without a redundant backup
// field.
func (s *Store) GetAllWithEmbeddings() []MemoryRecord {
	s.mu.RLock()
	out := make([]MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		proj := rec.clone()
		proj.Content = ""
		out = append(out, proj)
	}
	s.mu.RUnlock()

	sortByCreatedAtDesc(out)
	return out
}

// Records returns full deep copies in store (insertion) order. Used by the
// retrieval engine's keyword scan and by backup export.
func (s *Store) Records() []MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.clone())
	}
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (MemoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return MemoryRecord{}, false
	}
	return s.records[idx].clone(), true
}

// ExistsByURL reports whether a record with exactly this URL is stored.
func (s *Store) ExistsByURL(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.URL == url {
			return true
		}
	}
	return false
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ClearAll replaces the store with a fresh empty one and flushes.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.records = nil
	s.byID = make(map[string]int)
	s.mu.Unlock()

	s.flush()
}

// flush serializes the whole store and writes it to the persister. Errors
// are logged and swallowed: availability wins over strict durability in a
// single-user local deployment.
func (s *Store) flush() {
	s.mu.RLock()
	blob, err := json.Marshal(state{Version: stateVersion, Records: s.records})
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("serialize store failed, flush skipped")
		return
	}

	if err := s.persister.Save(blob); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(blob)).Msg("store flush failed, in-memory state remains authoritative")
	}
}

// truncateContent caps content at MaxContentLen characters on a rune
// boundary, so truncation never leaves invalid UTF-8 behind.
func truncateContent(s string) string {
	if len(s) <= MaxContentLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxContentLen {
		return s
	}
	return string(runes[:MaxContentLen])
}

func sortByCreatedAtDesc(records []MemoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return strings.Compare(records[i].ID, records[j].ID) < 0
	})
}
