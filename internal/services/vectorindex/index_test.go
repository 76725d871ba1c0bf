package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
)

func newTestIndex(t *testing.T, dimension int) *Index {
	t.Helper()
	idx, err := New(dimension, common.GetLogger())
	require.NoError(t, err)
	return idx
}

func TestSearch_SelfQueryScoresHighest(t *testing.T) {
	idx := newTestIndex(t, 3)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0, 0}))
	require.NoError(t, idx.Add("chunk_b", []float32{0, 1, 0}))
	require.NoError(t, idx.Add("chunk_c", []float32{0.9, 0.1, 0}))

	results, err := idx.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "chunk_a", results[0].ChunkID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Equal(t, "chunk_c", results[1].ChunkID)
	assert.Equal(t, "chunk_b", results[2].ChunkID)
}

func TestSearch_ReturnsMinOfKAndSize(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))
	require.NoError(t, idx.Add("chunk_b", []float32{0, 1}))

	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t, 2)

	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_InvalidK(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))

	_, err := idx.Search([]float32{1, 0}, 0)
	assert.Error(t, err)

	_, err = idx.Search([]float32{1, 0}, -3)
	assert.Error(t, err)
}

func TestSearch_TieBreakByInsertionOrder(t *testing.T) {
	idx := newTestIndex(t, 2)
	// All identical vectors, identical scores
	require.NoError(t, idx.Add("chunk_first", []float32{1, 1}))
	require.NoError(t, idx.Add("chunk_second", []float32{1, 1}))
	require.NoError(t, idx.Add("chunk_third", []float32{1, 1}))

	results, err := idx.Search([]float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "chunk_first", results[0].ChunkID)
	assert.Equal(t, "chunk_second", results[1].ChunkID)
	assert.Equal(t, "chunk_third", results[2].ChunkID)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)

	err := idx.Add("chunk_a", []float32{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestAdd_ReplaceKeepsPosition(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))
	require.NoError(t, idx.Add("chunk_b", []float32{1, 0}))
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))

	assert.Equal(t, 2, idx.Len())

	results, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "chunk_a", results[0].ChunkID)
}

func TestVersion_IncrementsOnMutation(t *testing.T) {
	idx := newTestIndex(t, 2)
	assert.Equal(t, uint64(0), idx.Version())

	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))
	assert.Equal(t, uint64(1), idx.Version())

	// A batch is one mutation
	require.NoError(t, idx.AddBatch([]string{"chunk_b", "chunk_c"}, [][]float32{{0, 1}, {1, 1}}))
	assert.Equal(t, uint64(2), idx.Version())
}

func TestAddBatch_BadEntryLeavesIndexUnchanged(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0}))
	version := idx.Version()

	err := idx.AddBatch(
		[]string{"chunk_b", "chunk_c"},
		[][]float32{{0, 1}, {1, 0, 0}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, version, idx.Version())

	err = idx.AddBatch([]string{""}, [][]float32{{0, 1}})
	require.Error(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	idx := newTestIndex(t, 3)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0, 0}))
	require.NoError(t, idx.Add("chunk_b", []float32{0, 1, 0}))
	require.NoError(t, idx.Add("chunk_c", []float32{0.5, 0.5, 0}))
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path, 3, common.GetLogger())
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())

	original, err := idx.Search([]float32{0.7, 0.3, 0}, 3)
	require.NoError(t, err)
	restored, err := loaded.Search([]float32{0.7, 0.3, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestSnapshot_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.idx")

	idx, err := Load(path, 3, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestSnapshot_DimensionMismatchRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")

	idx := newTestIndex(t, 3)
	require.NoError(t, idx.Add("chunk_a", []float32{1, 0, 0}))
	require.NoError(t, idx.Save(path))

	_, err := Load(path, 8, common.GetLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}
