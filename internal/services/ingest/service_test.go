package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/chunker"
	"github.com/ternarybob/doceo/internal/services/embeddings"
	"github.com/ternarybob/doceo/internal/services/llm"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
)

type memoryChunkStorage struct {
	resources map[string]*models.Resource
	chunks    map[string]*models.Chunk
}

func newMemoryChunkStorage() *memoryChunkStorage {
	return &memoryChunkStorage{
		resources: make(map[string]*models.Resource),
		chunks:    make(map[string]*models.Chunk),
	}
}

func (m *memoryChunkStorage) SaveResource(ctx context.Context, resource *models.Resource) error {
	m.resources[resource.ID] = resource
	return nil
}

func (m *memoryChunkStorage) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	resource, ok := m.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", id)
	}
	return resource, nil
}

func (m *memoryChunkStorage) ListResources(ctx context.Context) ([]*models.Resource, error) {
	var result []*models.Resource
	for _, resource := range m.resources {
		result = append(result, resource)
	}
	return result, nil
}

func (m *memoryChunkStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *memoryChunkStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, nil
}

func (m *memoryChunkStorage) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	var result []*models.Chunk
	for _, id := range ids {
		if chunk, ok := m.chunks[id]; ok {
			result = append(result, chunk)
		}
	}
	return result, nil
}

func (m *memoryChunkStorage) CountChunks(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

func newTestService(t *testing.T) (*Service, *memoryChunkStorage, *vectorindex.Index) {
	t.Helper()

	logger := common.GetLogger()
	const dimension = 16

	backend := llm.NewMockBackend(dimension)
	embedder := embeddings.NewService(backend, &common.EmbeddingsConfig{
		Model:     "test",
		Dimension: dimension,
		BatchSize: 8,
	}, logger)

	index, err := vectorindex.New(dimension, logger)
	require.NoError(t, err)

	storage := newMemoryChunkStorage()
	fetcher := NewFetcher(&common.ResearchConfig{
		UserAgent:      "doceo-test",
		RequestTimeout: common.Duration(5 * time.Second),
		MaxBodySize:    1 << 20,
	}, logger)

	ch := chunker.New(chunker.WithTargetTokens(20), chunker.WithOverlapTokens(4))
	service := NewService(ch, embedder, index, filepath.Join(t.TempDir(), "vectors.idx"), storage, fetcher, logger)
	return service, storage, index
}

func TestIngestText(t *testing.T) {
	service, storage, index := newTestService(t)

	text := "Tomatoes need six hours of sun a day. Water them deeply twice a week. " +
		"Mulch keeps the soil moist and suppresses weeds. Feed every two weeks once fruit sets. " +
		"Prune suckers to improve airflow and reduce disease pressure in humid climates."

	resource, err := service.IngestText(context.Background(), "Tomato care", text)
	require.NoError(t, err)
	require.NotEmpty(t, resource.ID)
	assert.Greater(t, resource.ChunkCount, 1)

	count, err := storage.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resource.ChunkCount, count)
	assert.Equal(t, resource.ChunkCount, index.Len())
}

func TestIngestText_EmptyRejected(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.IngestText(context.Background(), "empty", "   ")
	assert.Error(t, err)
}

func TestIngestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Composting Basics</title></head>
			<body><nav>menu</nav><article><h1>Composting</h1>
			<p>Compost needs a balance of greens and browns to break down quickly.</p>
			<p>Turn the pile weekly and keep it as damp as a wrung out sponge.</p>
			</article><footer>copyright</footer></body></html>`)
	}))
	defer server.Close()

	service, storage, _ := newTestService(t)

	resource, err := service.IngestURL(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Composting Basics", resource.Title)
	assert.Equal(t, server.URL, resource.URL)

	chunks := storage.chunks
	require.NotEmpty(t, chunks)
	var all string
	for _, chunk := range chunks {
		all += chunk.Text + " "
	}
	assert.Contains(t, all, "greens and browns")
	assert.NotContains(t, all, "copyright")
}

func TestIngestURL_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	service, _, _ := newTestService(t)

	_, err := service.IngestURL(context.Background(), server.URL)
	assert.Error(t, err)
}
