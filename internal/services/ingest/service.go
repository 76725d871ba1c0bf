// Package ingest runs the resource ingestion pipeline: split text into
// chunks, embed them, index the vectors, and persist everything.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/chunker"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
)

// Service implements IngestService.
type Service struct {
	chunker   *chunker.Chunker
	embedder  interfaces.EmbeddingService
	index     *vectorindex.Index
	indexPath string
	storage   interfaces.ChunkStorage
	fetcher   *Fetcher
	logger    arbor.ILogger
}

// NewService creates an ingest service.
func NewService(
	ch *chunker.Chunker,
	embedder interfaces.EmbeddingService,
	index *vectorindex.Index,
	indexPath string,
	storage interfaces.ChunkStorage,
	fetcher *Fetcher,
	logger arbor.ILogger,
) *Service {
	return &Service{
		chunker:   ch,
		embedder:  embedder,
		index:     index,
		indexPath: indexPath,
		storage:   storage,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// IngestText chunks, embeds, indexes, and stores a text document.
func (s *Service) IngestText(ctx context.Context, title, text string) (*models.Resource, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("resource text cannot be empty")
	}

	resource := &models.Resource{
		ID:        common.NewResourceID(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	return s.ingest(ctx, resource, text)
}

// IngestURL fetches a web page and ingests its markdown content.
func (s *Service) IngestURL(ctx context.Context, url string) (*models.Resource, error) {
	title, content, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no usable content at %s", url)
	}

	resource := &models.Resource{
		ID:        common.NewResourceID(),
		Title:     title,
		URL:       url,
		CreatedAt: time.Now(),
	}

	return s.ingest(ctx, resource, content)
}

func (s *Service) ingest(ctx context.Context, resource *models.Resource, text string) (*models.Resource, error) {
	startTime := time.Now()

	chunks := s.chunker.Split(resource.ID, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunker produced no chunks for resource %s", resource.ID)
	}

	texts := make([]string, len(chunks))
	chunkIDs := make([]string, len(chunks))
	chunkPtrs := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
		chunkIDs[i] = chunks[i].ID
		chunkPtrs[i] = &chunks[i]
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed resource %s: %w", resource.ID, err)
	}

	resource.ChunkCount = len(chunks)
	if err := s.storage.SaveResource(ctx, resource); err != nil {
		return nil, err
	}
	if err := s.storage.SaveChunks(ctx, chunkPtrs); err != nil {
		return nil, err
	}

	if err := s.index.AddBatch(chunkIDs, vectors); err != nil {
		return nil, fmt.Errorf("failed to index resource %s: %w", resource.ID, err)
	}

	// A failed snapshot is recoverable: the next scheduled snapshot
	// catches up, so ingestion still succeeds.
	if err := s.index.Save(s.indexPath); err != nil {
		s.logger.Warn().Err(err).Str("path", s.indexPath).Msg("Failed to snapshot index after ingest")
	}

	s.logger.Info().
		Str("resource_id", resource.ID).
		Str("title", resource.Title).
		Int("chunk_count", len(chunks)).
		Dur("duration", time.Since(startTime)).
		Msg("Resource ingested")

	return resource, nil
}
