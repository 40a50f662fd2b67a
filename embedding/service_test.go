package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder mirrors the mock package's deterministic embedder without
// importing it (that would cycle).
type hashEmbedder struct {
	dims  int
	calls atomic.Int64
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h.calls.Add(1)
	vec := make([]float32, h.dims)
	seed := uint64(14695981039346656037)
	for _, b := range []byte(text) {
		seed = (seed ^ uint64(b)) * 1099511628211
	}
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(1<<63)
	}
	return Normalize(vec), nil
}

func (h *hashEmbedder) Dimensions() int { return h.dims }

func newTestService(t *testing.T, embedder Embedder) *Service {
	t.Helper()
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		return embedder, nil
	}, ServiceConfig{Dims: embedder.Dimensions(), CacheBytes: -1, Logger: zerolog.Nop()})
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestService_RequiresInit(t *testing.T) {
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		return &hashEmbedder{dims: 8}, nil
	}, ServiceConfig{Dims: 8, Logger: zerolog.Nop()})

	assert.False(t, svc.Ready())
	_, err := svc.EmbedText(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_InitFailureIsTerminal(t *testing.T) {
	boom := errors.New("model load failed")
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		return nil, boom
	}, ServiceConfig{Dims: 8, Logger: zerolog.Nop()})

	err := svc.Init(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, svc.Ready())

	_, err = svc.EmbedText(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_InitMemoized(t *testing.T) {
	var count atomic.Int64
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		count.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &hashEmbedder{dims: 8}, nil
	}, ServiceConfig{Dims: 8, Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Init(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), count.Load(), "concurrent inits must share one in-flight initialization")
	assert.True(t, svc.Ready())
}

func TestEmbedText_UnitNorm(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 16})

	vec, err := svc.EmbedText(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	require.Len(t, vec, 16)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)
}

func TestEmbedText_Deterministic(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 16})

	a, err := svc.EmbedText(context.Background(), "same text")
	require.NoError(t, err)
	b, err := svc.EmbedText(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedText_NormalizesWhitespace(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 16})

	a, err := svc.EmbedText(context.Background(), "hello   world")
	require.NoError(t, err)
	b, err := svc.EmbedText(context.Background(), "  hello\n\tworld ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedText_EmptyYieldsZeroVector(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 8})

	vec, err := svc.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestEmbedText_TruncatesLongInput(t *testing.T) {
	embedder := &hashEmbedder{dims: 8}
	svc := newTestService(t, embedder)

	long := strings.Repeat("x", 2*MaxTextChars)
	a, err := svc.EmbedText(context.Background(), long)
	require.NoError(t, err)
	b, err := svc.EmbedText(context.Background(), long[:MaxTextChars])
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestEmbedText_CacheHitSkipsEmbedder(t *testing.T) {
	embedder := &hashEmbedder{dims: 8}
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		return embedder, nil
	}, ServiceConfig{Dims: 8, Logger: zerolog.Nop()})
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.EmbedText(context.Background(), "cached text")
	require.NoError(t, err)
	calls := embedder.calls.Load()

	// ristretto admits asynchronously; wait for the set to land.
	svc.cache.Wait()

	_, err = svc.EmbedText(context.Background(), "cached text")
	require.NoError(t, err)
	assert.Equal(t, calls, embedder.calls.Load(), "second embed of identical text should hit the cache")
}

func TestEmbedDocument_ShortEqualsEmbedText(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 16})

	text := "A short document. Nothing to chunk here."
	doc, err := svc.EmbedDocument(context.Background(), text)
	require.NoError(t, err)
	direct, err := svc.EmbedText(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, direct, doc)
}

func TestEmbedDocument_LongInputAveragesChunks(t *testing.T) {
	svc := newTestService(t, &hashEmbedder{dims: 16})

	sentence := "The quick brown fox jumps over the lazy dog by the river. "
	content := strings.Repeat(sentence, 40)

	vec, err := svc.EmbedDocument(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, vec, 16)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)

	// Matches averaging the chunk embeddings by hand.
	chunks := ChunkText(content)
	require.Greater(t, len(chunks), 1)
	var vectors [][]float32
	for _, chunk := range chunks {
		cv, err := svc.EmbedText(context.Background(), chunk)
		require.NoError(t, err)
		vectors = append(vectors, cv)
	}
	assert.Equal(t, Average(vectors, 16), vec)
}

func TestEmbedDocument_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var reports []float64

	svc := NewService(func(ctx context.Context) (Embedder, error) {
		return &hashEmbedder{dims: 8}, nil
	}, ServiceConfig{
		Dims:       8,
		CacheBytes: -1,
		Logger:     zerolog.Nop(),
		Progress: func(pct float64) {
			mu.Lock()
			reports = append(reports, pct)
			mu.Unlock()
		},
	})
	require.NoError(t, svc.Init(context.Background()))

	content := strings.Repeat("Progress is reported per chunk as it completes. ", 40)
	_, err := svc.EmbedDocument(context.Background(), content)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reports)
	assert.InDelta(t, 100, reports[len(reports)-1], 1e-9)
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i], reports[i-1])
	}
}
