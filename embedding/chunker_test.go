package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText(""))
	assert.Empty(t, ChunkText("   \n\t"))
}

func TestChunkText_ShortInputSingleChunk(t *testing.T) {
	text := "One sentence. Another sentence."
	chunks := ChunkText(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkText_SplitsLongInput(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	text := strings.Repeat(sentence, 30) // ~2000 chars

	chunks := ChunkText(text)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		// Chunk cap plus the carried overlap words.
		assert.LessOrEqual(t, len(chunk), ChunkSize+120, "chunk %d too large", i)
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestChunkText_CarriesWordOverlap(t *testing.T) {
	sentence := "Alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima. "
	text := strings.Repeat(sentence, 20)

	chunks := ChunkText(text)
	require.Greater(t, len(chunks), 1)

	// The second chunk starts with the tail words of the first.
	firstWords := strings.Fields(chunks[0])
	tail := strings.Join(firstWords[len(firstWords)-ChunkOverlapWords:], " ")
	assert.True(t, strings.HasPrefix(chunks[1], tail),
		"second chunk should start with the overlap %q, got %q", tail, chunks[1])
}

func TestChunkText_NoSentenceBoundaryFallback(t *testing.T) {
	// One unbroken run with no terminators still yields a single chunk
	// truncated to the chunk size.
	text := strings.Repeat("a", 2*ChunkSize)
	chunks := ChunkText(text)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], ChunkSize)
}

func TestSplitSentences_CJKFullStop(t *testing.T) {
	sentences := splitSentences("첫 번째 문장입니다。두 번째 문장입니다。")
	assert.Len(t, sentences, 2)
}
