// Package vectorindex is an in-memory brute-force cosine similarity index
// over chunk embeddings, with snapshot persistence to a single file. At
// the corpus sizes a single deployment holds, exact linear scan is faster
// to operate and debug than an approximate structure.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
)

// SearchResult is one scored index entry, ordered best-first.
type SearchResult struct {
	ChunkID string
	Score   float32
}

// Index maps chunk IDs to embedding vectors and serves nearest-neighbor
// queries by cosine similarity. All methods are safe for concurrent use;
// readers proceed in parallel, writers are exclusive.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
	norms     []float32
	positions map[string]int
	version   uint64
	logger    arbor.ILogger
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int, logger arbor.ILogger) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimension)
	}
	return &Index{
		dimension: dimension,
		positions: make(map[string]int),
		logger:    logger,
	}, nil
}

// Dimension returns the fixed vector dimension.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Version increments on every mutation. The scheduler uses it to skip
// snapshots when nothing changed.
func (idx *Index) Version() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.version
}

// Add stores a vector under a chunk ID. Adding an existing ID replaces
// its vector in place and keeps its original insertion position.
func (idx *Index) Add(chunkID string, vector []float32) error {
	if chunkID == "" {
		return fmt.Errorf("chunk id cannot be empty")
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vector), idx.dimension)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	norm := vectorNorm(vector)

	if pos, ok := idx.positions[chunkID]; ok {
		idx.vectors[pos] = vector
		idx.norms[pos] = norm
	} else {
		idx.positions[chunkID] = len(idx.ids)
		idx.ids = append(idx.ids, chunkID)
		idx.vectors = append(idx.vectors, vector)
		idx.norms = append(idx.norms, norm)
	}
	idx.version++

	return nil
}

// AddBatch stores several vectors under one lock acquisition. Entries
// are validated before the lock is taken, so a bad entry leaves the
// index unchanged.
func (idx *Index) AddBatch(chunkIDs []string, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		return fmt.Errorf("id/vector count mismatch: %d ids, %d vectors", len(chunkIDs), len(vectors))
	}
	for i, chunkID := range chunkIDs {
		if chunkID == "" {
			return fmt.Errorf("chunk id cannot be empty")
		}
		if len(vectors[i]) != idx.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), idx.dimension)
		}
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, chunkID := range chunkIDs {
		norm := vectorNorm(vectors[i])
		if pos, ok := idx.positions[chunkID]; ok {
			idx.vectors[pos] = vectors[i]
			idx.norms[pos] = norm
		} else {
			idx.positions[chunkID] = len(idx.ids)
			idx.ids = append(idx.ids, chunkID)
			idx.vectors = append(idx.vectors, vectors[i])
			idx.norms = append(idx.norms, norm)
		}
	}
	idx.version++

	return nil
}

// Search returns up to k entries most similar to the query, best first.
// Equal scores keep insertion order. An empty index returns an empty
// result; k must be positive.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimension)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.ids) == 0 {
		return []SearchResult{}, nil
	}

	queryNorm := vectorNorm(query)

	results := make([]SearchResult, len(idx.ids))
	for i, vector := range idx.vectors {
		results[i] = SearchResult{
			ChunkID: idx.ids[i],
			Score:   cosine(query, queryNorm, vector, idx.norms[i]),
		}
	}

	// Stable keeps insertion order among equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func cosine(a []float32, aNorm float32, b []float32, bNorm float32) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (aNorm * bNorm)
}

func vectorNorm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}
