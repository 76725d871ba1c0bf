package models

import "time"

// Chunk represents a bounded span of ingested source text used as a
// retrieval unit. Chunks are immutable once created.
type Chunk struct {
	ID         string    `json:"id"`          // chunk_{uuid}
	ResourceID string    `json:"resource_id"` // res_{uuid} of the source document
	Text       string    `json:"text"`
	TokenCount int       `json:"token_count"` // Approximate, whitespace heuristic
	Position   int       `json:"position"`    // Ordinal within the source document
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddedChunk pairs a chunk ID with its embedding vector.
// One-to-one with Chunk; all vectors in one index share the same dimension.
type EmbeddedChunk struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
}

// Resource represents an ingested source document. The raw text is not
// retained here; it lives split across the resource's chunks.
type Resource struct {
	ID         string    `json:"id"` // res_{uuid}
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
