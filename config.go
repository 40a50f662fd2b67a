package memex

import "github.com/memexhq/memex/embedding"

// Config holds Manager configuration.
type Config struct {
	// Dims is the embedding dimension every stored record must match.
	// Default: embedding.Dimension (384).
	Dims int

	// RecallLimit is the default result count for recall when the caller
	// passes a non-positive limit.
	RecallLimit int
}

// DefaultConfig holds the defaults for a local deployment.
var DefaultConfig = &Config{
	Dims:        embedding.Dimension,
	RecallLimit: 5,
}
