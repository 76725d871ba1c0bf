// Package retrieval bridges the embedding service, the vector index, and
// chunk storage for query-time context fetch.
package retrieval

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
)

// Service implements Retriever over the in-process index.
type Service struct {
	embedder interfaces.EmbeddingService
	index    *vectorindex.Index
	chunks   interfaces.ChunkStorage
	logger   arbor.ILogger
}

// NewService creates a retriever.
func NewService(embedder interfaces.EmbeddingService, index *vectorindex.Index, chunks interfaces.ChunkStorage, logger arbor.ILogger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		logger:   logger,
	}
}

// Retrieve returns up to k chunks most similar to the query, best first.
// An empty index yields an empty result so callers can degrade rather
// than fail. A chunk ID present in the index but missing from storage is
// skipped; the index snapshot can lag behind a deleted resource.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]*models.Chunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if s.index.Len() == 0 {
		return []*models.Chunk{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	chunks := make([]*models.Chunk, 0, len(results))
	for _, result := range results {
		chunk, err := s.chunks.GetChunk(ctx, result.ChunkID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("chunk_id", result.ChunkID).
				Msg("Indexed chunk missing from storage, skipping")
			continue
		}
		chunks = append(chunks, chunk)
	}

	s.logger.Debug().
		Str("query", query).
		Int("k", k).
		Int("returned", len(chunks)).
		Msg("Retrieved context chunks")

	return chunks, nil
}
