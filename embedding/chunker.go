package embedding

import "strings"

const (
	// ChunkSize is the maximum characters per chunk.
	ChunkSize = 500

	// ChunkOverlapWords is the number of trailing words carried from one
	// chunk into the next to preserve context across the boundary.
	ChunkOverlapWords = 10
)

// ChunkText splits long text into bounded-size chunks on sentence
// boundaries, carrying a fixed word overlap into each next chunk. If no
// chunk can be produced, a single truncated slice of the input is returned
// so the caller always has something to embed.
func ChunkText(text string) []string {
	var chunks []string
	sentences := splitSentences(text)

	var current string
	for _, sentence := range sentences {
		if len(current)+len(sentence) <= ChunkSize {
			if current != "" {
				current += " "
			}
			current += sentence
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		overlap := tailWords(current, ChunkOverlapWords)
		if overlap != "" {
			current = overlap + " " + sentence
		} else {
			current = sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	if len(chunks) == 0 && strings.TrimSpace(text) != "" {
		if len(text) > ChunkSize {
			text = text[:ChunkSize]
		}
		chunks = append(chunks, text)
	}

	return chunks
}

// splitSentences splits text after sentence-ending punctuation followed by
// whitespace. Handles both ASCII terminators and the CJK full stop.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Consume the whitespace separating sentences.
		j := i + 1
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		if j > i+1 || runes[i] == '。' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
			i = j - 1
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// tailWords returns the last n words of s, or "" if s is empty.
func tailWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
