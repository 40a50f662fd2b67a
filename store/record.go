package store

// MaxContentLen caps the stored page content, in characters.
const MaxContentLen = 10000

// MemoryRecord is the unit of persistence: one remembered page, video or
// document. Records are immutable once inserted; the only mutation the
// store supports is deletion.
type MemoryRecord struct {
	// ID is an opaque unique string assigned at insert time.
	ID string `json:"id"`

	// URL identifies the origin. Uniqueness is enforced by a caller-side
	// dedup check, not a hard store constraint.
	URL string `json:"url"`

	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`

	// Tags preserve insertion order and are not deduplicated.
	Tags []string `json:"tags,omitempty"`

	// Embedding is the unit-norm document vector, fixed dimension per
	// deployment.
	Embedding []float32 `json:"embedding,omitempty"`

	// CreatedAt is an epoch-millisecond timestamp, set once at insert.
	CreatedAt int64 `json:"createdAt"`
}

// clone returns a deep copy so callers can never alias store internals.
func (r MemoryRecord) clone() MemoryRecord {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Embedding != nil {
		out.Embedding = append([]float32(nil), r.Embedding...)
	}
	return out
}

// summary returns the projection used for listings: no content, no
// embedding.
func (r MemoryRecord) summary() MemoryRecord {
	out := r.clone()
	out.Content = ""
	out.Embedding = nil
	return out
}
