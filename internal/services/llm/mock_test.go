package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/interfaces"
)

func TestMockBackend_CyclesResponses(t *testing.T) {
	backend := NewMockBackend(8, "first", "second")

	req := &interfaces.CompletionRequest{Prompt: "x"}
	ctx := context.Background()

	first, err := backend.Complete(ctx, req)
	require.NoError(t, err)
	second, err := backend.Complete(ctx, req)
	require.NoError(t, err)
	third, err := backend.Complete(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second)
	assert.Equal(t, "first", third)
	assert.Equal(t, 3, backend.Calls())
}

func TestMockBackend_DeterministicEmbeddings(t *testing.T) {
	backend := NewMockBackend(16)

	a, err := backend.Embed(context.Background(), []string{"same text", "other text"})
	require.NoError(t, err)
	b, err := backend.Embed(context.Background(), []string{"same text"})
	require.NoError(t, err)

	require.Len(t, a, 2)
	require.Len(t, a[0], 16)
	assert.Equal(t, a[0], b[0], "identical text must embed identically")
	assert.NotEqual(t, a[0], a[1])
}

func TestMockBackend_InjectedFailure(t *testing.T) {
	backend := NewMockBackend(8)
	backend.Err = ErrModelUnavailable

	_, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = backend.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
