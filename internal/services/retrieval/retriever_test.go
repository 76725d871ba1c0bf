package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
)

type fixedEmbedder struct {
	vector []float32
}

func (e *fixedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = e.vector
	}
	return vectors, nil
}

func (e *fixedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.vector, nil
}

func (e *fixedEmbedder) Dimension() int { return len(e.vector) }

type chunkMap map[string]*models.Chunk

func (m chunkMap) SaveResource(ctx context.Context, resource *models.Resource) error { return nil }
func (m chunkMap) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	return nil, fmt.Errorf("not found")
}
func (m chunkMap) ListResources(ctx context.Context) ([]*models.Resource, error) { return nil, nil }
func (m chunkMap) SaveChunks(ctx context.Context, chunks []*models.Chunk) error  { return nil }
func (m chunkMap) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	chunk, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, nil
}
func (m chunkMap) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	return nil, nil
}
func (m chunkMap) CountChunks(ctx context.Context) (int, error) { return len(m), nil }

func TestRetrieve_SimilarityOrder(t *testing.T) {
	idx, err := vectorindex.New(2, common.GetLogger())
	require.NoError(t, err)
	require.NoError(t, idx.Add("chunk_far", []float32{0, 1}))
	require.NoError(t, idx.Add("chunk_near", []float32{1, 0}))
	require.NoError(t, idx.Add("chunk_mid", []float32{1, 1}))

	chunks := chunkMap{
		"chunk_near": {ID: "chunk_near", Text: "near"},
		"chunk_mid":  {ID: "chunk_mid", Text: "mid"},
		"chunk_far":  {ID: "chunk_far", Text: "far"},
	}

	retriever := NewService(&fixedEmbedder{vector: []float32{1, 0}}, idx, chunks, common.GetLogger())

	result, err := retriever.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "chunk_near", result[0].ID)
	assert.Equal(t, "chunk_mid", result[1].ID)
	assert.Equal(t, "chunk_far", result[2].ID)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	idx, err := vectorindex.New(2, common.GetLogger())
	require.NoError(t, err)

	retriever := NewService(&fixedEmbedder{vector: []float32{1, 0}}, idx, chunkMap{}, common.GetLogger())

	result, err := retriever.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRetrieve_SkipsChunksMissingFromStorage(t *testing.T) {
	idx, err := vectorindex.New(2, common.GetLogger())
	require.NoError(t, err)
	require.NoError(t, idx.Add("chunk_present", []float32{1, 0}))
	require.NoError(t, idx.Add("chunk_gone", []float32{1, 0.1}))

	chunks := chunkMap{
		"chunk_present": {ID: "chunk_present", Text: "still here"},
	}

	retriever := NewService(&fixedEmbedder{vector: []float32{1, 0}}, idx, chunks, common.GetLogger())

	result, err := retriever.Retrieve(context.Background(), "anything", 2)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "chunk_present", result[0].ID)
}

func TestRetrieve_InvalidK(t *testing.T) {
	idx, err := vectorindex.New(2, common.GetLogger())
	require.NoError(t, err)

	retriever := NewService(&fixedEmbedder{vector: []float32{1, 0}}, idx, chunkMap{}, common.GetLogger())

	_, err = retriever.Retrieve(context.Background(), "anything", 0)
	assert.Error(t, err)
}
