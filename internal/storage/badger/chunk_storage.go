package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChunkStorage) SaveResource(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		return fmt.Errorf("resource ID is required")
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(resource.ID, resource); err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

func (s *ChunkStorage) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	var resource models.Resource
	if err := s.db.Store().Get(id, &resource); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("resource not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &resource, nil
}

func (s *ChunkStorage) ListResources(ctx context.Context) ([]*models.Resource, error) {
	var resources []models.Resource
	if err := s.db.Store().Find(&resources, nil); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	result := make([]*models.Resource, len(resources))
	for i := range resources {
		result[i] = &resources[i]
	}
	return result, nil
}

func (s *ChunkStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk ID is required")
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *ChunkStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	var chunk models.Chunk
	if err := s.db.Store().Get(id, &chunk); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("chunk not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

// GetChunks resolves several chunk IDs, preserving input order. IDs that
// no longer exist are skipped.
func (s *ChunkStorage) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	chunks := make([]*models.Chunk, 0, len(ids))
	for _, id := range ids {
		var chunk models.Chunk
		if err := s.db.Store().Get(id, &chunk); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return nil, fmt.Errorf("failed to get chunk %s: %w", id, err)
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, nil
}

func (s *ChunkStorage) CountChunks(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Chunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}
