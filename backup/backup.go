// Package backup exports the memory store to a portable JSON snapshot and
// re-imports it with a replace or merge conflict policy.
package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/memexhq/memex/store"
)

// Version is the only snapshot version this build reads or writes.
// Mismatched versions are rejected outright; no migration path exists.
const Version = 1

// Mode selects the import conflict policy.
type Mode string

const (
	// ModeReplace clears the store, then inserts every snapshot record
	// verbatim, preserving the snapshot's ids and timestamps.
	ModeReplace Mode = "replace"

	// ModeMerge keeps existing records and skips snapshot records whose
	// URL is already stored.
	ModeMerge Mode = "merge"
)

// Snapshot is a complete, versioned export of the store, embeddings
// included. It is the interchange format: a round-trip through JSON must
// reproduce an equivalent store, discounting float precision.
type Snapshot struct {
	Version     int                  `json:"version"`
	ExportedAt  int64                `json:"exportedAt"`
	MemoryCount int                  `json:"memoryCount"`
	Memories    []store.MemoryRecord `json:"memories"`
}

// Result summarizes an import.
type Result struct {
	Success  bool   `json:"success"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

// Export captures every record with its full embedding.
func Export(st *store.Store) Snapshot {
	memories := st.Records()
	return Snapshot{
		Version:     Version,
		ExportedAt:  time.Now().UnixMilli(),
		MemoryCount: len(memories),
		Memories:    memories,
	}
}

// Import restores records from a snapshot. Validation failures reject the
// whole snapshot with no partial import; once importing, per-record insert
// failures are counted as skipped and do not abort the rest.
func Import(st *store.Store, snapshot Snapshot, mode Mode, logger zerolog.Logger) Result {
	log := logger.With().Str("component", "backup").Logger()

	if snapshot.Version != Version {
		return Result{
			Success: false,
			Message: fmt.Sprintf("unsupported backup version: %d", snapshot.Version),
		}
	}
	if snapshot.Memories == nil {
		return Result{
			Success: false,
			Message: "invalid backup format: missing memories",
		}
	}
	if mode != ModeReplace && mode != ModeMerge {
		return Result{
			Success: false,
			Message: fmt.Sprintf("unknown import mode: %q", mode),
		}
	}

	if mode == ModeReplace {
		st.ClearAll()
		log.Info().Msg("store cleared for replace import")
	}

	var imported, skipped int
	for _, mem := range snapshot.Memories {
		if mode == ModeMerge && st.ExistsByURL(mem.URL) {
			skipped++
			continue
		}

		if _, err := st.Insert(mem); err != nil {
			log.Warn().Err(err).Str("id", mem.ID).Msg("skipping record")
			skipped++
			continue
		}
		imported++
	}

	message := fmt.Sprintf("restored %d memories", imported)
	if skipped > 0 {
		message += fmt.Sprintf(" (%d skipped)", skipped)
	}

	log.Info().Int("imported", imported).Int("skipped", skipped).Msg("import completed")
	return Result{Success: true, Imported: imported, Skipped: skipped, Message: message}
}

// Decode parses snapshot JSON. A document that is not snapshot-shaped is
// rejected here rather than surfacing half-parsed data to Import.
func Decode(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("invalid backup format: %w", err)
	}
	return snapshot, nil
}

// Encode serializes a snapshot in its interchange form.
func Encode(snapshot Snapshot) ([]byte, error) {
	return json.MarshalIndent(snapshot, "", "  ")
}

// Filename returns the conventional backup filename for the given day,
// e.g. "memex-backup-2026-09-01.json".
func Filename(now time.Time) string {
	return fmt.Sprintf("memex-backup-%s.json", now.Format("2006-01-02"))
}
