package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxSnippetLength is the maximum length of a document text snippet in runes.
const MaxSnippetLength = 500

// Document represents a document node in the knowledge graph, keyed by
// (ID, ChunkIndex). The extraction pipeline currently creates a single
// document node per source with ChunkIndex 0.
type Document struct {
	ID          uuid.UUID `json:"id"`
	ChunkIndex  int       `json:"chunk_index"`
	Title       string    `json:"title"`
	TextSnippet string    `json:"text_snippet,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
