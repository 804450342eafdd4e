package extraction

import (
	"strings"

	"github.com/siherrmann/kgraph/model"
)

// Default chunking parameters.
const (
	DefaultMaxChunkSize = 10000
	DefaultOverlap      = 500
)

// Chunk is one piece of a source document handed to the extractors.
type Chunk struct {
	Index int
	Text  string
}

var chunkDelimiters = []string{"\n\n", "\n", ". ", "! ", "? "}

// SplitText splits text into chunks of at most maxChunkSize runes with
// the given overlap between consecutive chunks. Chunk boundaries are
// moved back to the last sentence or paragraph break found in the
// final 20% of the chunk, so sentences are not cut mid-way when a
// break exists.
func SplitText(text string, maxChunkSize int, overlap int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= maxChunkSize {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0
	textLength := len(runes)
	index := 0

	for start < textLength {
		end := start + maxChunkSize
		if end > textLength {
			end = textLength
		}

		if end < textLength {
			searchStart := start + maxChunkSize*8/10
			if searchStart > end {
				searchStart = end
			}
			portion := string(runes[searchStart:end])
			for _, delimiter := range chunkDelimiters {
				if lastBreak := strings.LastIndex(portion, delimiter); lastBreak != -1 {
					end = searchStart + len([]rune(portion[:lastBreak])) + len([]rune(delimiter))
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, Chunk{Index: index, Text: chunk})
			index++
		}

		if end >= textLength {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// TextSnippet returns a snippet from the beginning of text, at most
// maxLength runes, preferring to end at a sentence boundary near the
// end of the window. Truncated snippets get a trailing ellipsis.
func TextSnippet(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = model.MaxSnippetLength
	}

	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	snippet := strings.TrimSpace(string(runes[:maxLength]))
	for _, delimiter := range []string{". ", "! ", "? ", "\n"} {
		lastBreak := strings.LastIndex(snippet, delimiter)
		if lastBreak > maxLength*8/10 {
			return strings.TrimSpace(snippet[:lastBreak+len(delimiter)]) + "..."
		}
	}
	return snippet + "..."
}
