package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/ternarybob/doceo/internal/interfaces"
)

// MockBackend returns deterministic canned output without any network
// dependency. It backs the "mock" provider for local development and is
// used directly in tests.
type MockBackend struct {
	mu        sync.Mutex
	responses []string
	calls     int
	dimension int

	// Err, when set, is returned from every operation.
	Err error
}

// NewMockBackend creates a mock that cycles through the given responses.
// With no responses it produces a small fixed course structure.
func NewMockBackend(dimension int, responses ...string) *MockBackend {
	if len(responses) == 0 {
		responses = []string{defaultMockStructure}
	}
	return &MockBackend{
		responses: responses,
		dimension: dimension,
	}
}

const defaultMockStructure = `{
	"title": "Mock Course",
	"description": "A canned course structure for offline development.",
	"modules": [
		{
			"title": "Getting Started",
			"description": "First steps",
			"lessons": [
				{"title": "Overview", "objective": "Understand the topic at a high level"},
				{"title": "Core Concepts", "objective": "Learn the fundamental ideas"}
			]
		}
	]
}`

// Name identifies the backend
func (b *MockBackend) Name() string {
	return "mock"
}

// Calls reports how many completions have been requested.
func (b *MockBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Complete returns the next canned response
func (b *MockBackend) Complete(ctx context.Context, req *interfaces.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Err != nil {
		return "", b.Err
	}

	response := b.responses[b.calls%len(b.responses)]
	b.calls++
	return response, nil
}

// Stream emits the canned response one word at a time.
func (b *MockBackend) Stream(ctx context.Context, req *interfaces.CompletionRequest) (<-chan interfaces.StreamEvent, error) {
	response, err := b.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan interfaces.StreamEvent)
	go func() {
		defer close(events)
		for _, word := range strings.SplitAfter(response, " ") {
			select {
			case events <- interfaces.StreamEvent{Token: word}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case events <- interfaces.StreamEvent{Done: true}:
		case <-ctx.Done():
		}
	}()
	return events, nil
}

// Embed produces deterministic unit vectors derived from each text, so
// identical texts always land at the same point in the index.
func (b *MockBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	err := b.Err
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, b.dimension)
	}
	return vectors, nil
}

// HealthCheck always succeeds unless a failure is injected.
func (b *MockBackend) HealthCheck(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return fmt.Errorf("mock backend unhealthy: %w", b.Err)
	}
	return nil
}

// Close is a no-op
func (b *MockBackend) Close() error {
	return nil
}

// deterministicVector hashes the text into a normalized vector.
func deterministicVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)

	var norm float64
	for i := range vector {
		h := fnv.New64a()
		fmt.Fprintf(h, "%d:%s", i, text)
		// Map the hash into [-1, 1)
		v := float64(int64(h.Sum64())) / float64(math.MaxInt64)
		vector[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}
