package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
)

// MaxTextChars is the per-call input cap, a character proxy for the model's
// maximum token count.
const MaxTextChars = 512

// Factory produces the underlying embedder. It may be slow (model load,
// sidecar handshake) and is invoked at most once per Service.
type Factory func(ctx context.Context) (Embedder, error)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Dims is the embedding dimension. Default: Dimension.
	Dims int

	// CacheBytes bounds the embedding result cache. Default: 32 MiB.
	// Negative disables caching.
	CacheBytes int64

	// Progress, when set, receives fractional progress (0-100) as each
	// chunk of a document embedding completes. Side channel for UI
	// feedback, not part of the return contract.
	Progress func(pct float64)

	Logger zerolog.Logger
}

// Service wraps an Embedder with initialization memoization, text
// normalization, document chunking and a result cache.
//
// Init must be called before EmbedText/EmbedDocument; concurrent Init calls
// share a single in-flight initialization. An initialization failure is
// terminal for the Service: every subsequent call reports ErrUnavailable
// and callers are expected to degrade to keyword-only retrieval.
type Service struct {
	factory  Factory
	dims     int
	cache    *ristretto.Cache
	progress func(float64)
	logger   zerolog.Logger

	mu       sync.Mutex
	initDone chan struct{}
	embedder Embedder
	initErr  error
}

// NewService creates a Service around the given embedder factory.
func NewService(factory Factory, cfg ServiceConfig) *Service {
	if cfg.Dims == 0 {
		cfg.Dims = Dimension
	}
	if cfg.CacheBytes == 0 {
		cfg.CacheBytes = 32 << 20
	}

	var cache *ristretto.Cache
	if cfg.CacheBytes > 0 {
		cache, _ = ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     cfg.CacheBytes,
			BufferItems: 64,
		})
	}

	return &Service{
		factory:  factory,
		dims:     cfg.Dims,
		cache:    cache,
		progress: cfg.Progress,
		logger:   cfg.Logger.With().Str("component", "embedding").Logger(),
	}
}

// Init initializes the underlying embedder. Idempotent; concurrent callers
// wait on the same in-flight initialization rather than spawning another.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initDone == nil {
		done := make(chan struct{})
		s.initDone = done
		go func() {
			embedder, err := s.factory(context.Background())
			s.mu.Lock()
			s.embedder = embedder
			s.initErr = err
			s.mu.Unlock()
			if err != nil {
				s.logger.Error().Err(err).Msg("embedder initialization failed")
			} else {
				s.logger.Info().Int("dims", s.dims).Msg("embedder ready")
			}
			close(done)
		}()
	}
	done := s.initDone
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, s.initErr)
	}
	return nil
}

// Ready reports whether the embedder initialized successfully.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initDone == nil {
		return false
	}
	select {
	case <-s.initDone:
		return s.initErr == nil && s.embedder != nil
	default:
		return false
	}
}

// Dimensions returns the embedding vector size.
func (s *Service) Dimensions() int { return s.dims }

func (s *Service) ready() (Embedder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initDone == nil {
		return nil, ErrUnavailable
	}
	select {
	case <-s.initDone:
	default:
		return nil, ErrUnavailable
	}
	if s.initErr != nil || s.embedder == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, s.initErr)
	}
	return s.embedder, nil
}

// EmbedText embeds a single short text: whitespace is collapsed, the input
// truncated to MaxTextChars, and the result is unit-normalized. Empty input
// yields the zero vector.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embedder, err := s.ready()
	if err != nil {
		return nil, err
	}

	normalized := truncateRunes(strings.Join(strings.Fields(text), " "), MaxTextChars)
	if normalized == "" {
		return make([]float32, s.dims), nil
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(normalized); ok {
			if vec, ok := cached.([]float32); ok {
				return vec, nil
			}
		}
	}

	vec, err := embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, err
	}
	vec = Normalize(vec)

	if s.cache != nil {
		s.cache.Set(normalized, vec, int64(len(vec)*4))
	}
	return vec, nil
}

// EmbedDocument embeds arbitrarily long content. Inputs at or under the
// chunk threshold take the single-chunk path and are equivalent to
// EmbedText; longer inputs are chunked on sentence boundaries, embedded per
// chunk, and averaged back to a unit vector.
func (s *Service) EmbedDocument(ctx context.Context, content string) ([]float32, error) {
	if len(content) <= ChunkSize {
		return s.EmbedText(ctx, content)
	}

	chunks := ChunkText(content)
	if len(chunks) == 0 {
		return s.EmbedText(ctx, truncateRunes(content, ChunkSize))
	}

	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.EmbedText(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		vectors = append(vectors, vec)
		s.reportProgress(float64(i+1) / float64(len(chunks)) * 100)
	}

	return Average(vectors, s.dims), nil
}

// AverageVectors returns the renormalized component-wise mean. An empty
// list yields the zero vector.
func (s *Service) AverageVectors(vectors [][]float32) []float32 {
	return Average(vectors, s.dims)
}

func (s *Service) reportProgress(pct float64) {
	if s.progress != nil {
		s.progress(pct)
	}
}

// truncateRunes caps s at n runes without splitting a multibyte character.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
