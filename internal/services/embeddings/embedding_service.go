// Package embeddings batches text through the model backend's embedding
// endpoint and enforces the process-wide vector dimension.
package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

// maxParallelBatches bounds concurrent embedding requests so a large
// ingest does not saturate the local model server.
const maxParallelBatches = 4

// Service implements EmbeddingService on top of a model backend.
type Service struct {
	backend   interfaces.ModelBackend
	dimension int
	batchSize int
	logger    arbor.ILogger
}

// NewService creates an embedding service using the configured backend.
func NewService(backend interfaces.ModelBackend, cfg *common.EmbeddingsConfig, logger arbor.ILogger) *Service {
	return &Service{
		backend:   backend,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Dimension returns the fixed vector dimension for this process.
func (s *Service) Dimension() int {
	return s.dimension
}

// EmbedTexts embeds a batch of texts in input order. Oversized batches are
// split to the configured batch size and run with bounded parallelism; any
// sub-batch failure fails the whole call with no partial result.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelBatches)

	var mu sync.Mutex
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		group.Go(func() error {
			batch, err := s.backend.Embed(groupCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed batch [%d:%d]: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed batch [%d:%d] returned %d vectors", start, end, len(batch))
			}
			for i, vector := range batch {
				if len(vector) != s.dimension {
					return fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(vector), s.dimension)
				}
				mu.Lock()
				vectors[start+i] = vector
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("text_count", len(texts)).
		Int("dimension", s.dimension).
		Msg("Embedded text batch")

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
