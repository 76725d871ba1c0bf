package interfaces

import (
	"context"

	"github.com/ternarybob/doceo/internal/models"
)

// EmbeddingService turns text into fixed-dimension vectors, batched.
// Length- and order-preserving; a backend error fails the whole batch.
type EmbeddingService interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimension() int
}

// Retriever bridges the vector index and the embedding service for
// query-time context fetch. An empty index yields an empty result, not an
// error - generation can proceed ungrounded.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*models.Chunk, error)
}

// IngestService runs the ingestion pipeline: chunk, embed, index, store
type IngestService interface {
	IngestText(ctx context.Context, title, text string) (*models.Resource, error)
	IngestURL(ctx context.Context, url string) (*models.Resource, error)
}

// EventType identifies a published event
type EventType string

const (
	EventJobUpdated   EventType = "job_updated"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
)

// Event is a single pub/sub message
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	Close() error
}
