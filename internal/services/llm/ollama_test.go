package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

func testConfig(endpoint string, maxRetries int) *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Endpoint = endpoint
	cfg.LLM.MaxRetries = maxRetries
	cfg.LLM.Timeout = common.Duration(5 * time.Second)
	cfg.Embeddings.Endpoint = endpoint
	return cfg
}

func TestOllamaComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		fmt.Fprint(w, `{"response": "hello from the model", "done": true}`)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 0), common.GetLogger())

	result, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", result)
}

func TestOllamaComplete_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"response": "recovered", "done": true}`)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 2), common.GetLogger())

	result, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestOllamaComplete_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 2), common.GetLogger())

	_, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.Equal(t, int32(3), attempts.Load(), "expected max_retries+1 attempts")
}

func TestOllamaComplete_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 3), common.GetLogger())

	_, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrModelUnavailable))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllamaComplete_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	cfg := testConfig(endpoint, 1)
	backend := NewOllamaBackend(cfg, common.GetLogger())

	_, err := backend.Complete(context.Background(), &interfaces.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestOllamaStream_DeliversFragmentsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response": "one ", "done": false}`)
		fmt.Fprintln(w, `{"response": "two ", "done": false}`)
		fmt.Fprintln(w, `{"response": "three", "done": true}`)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 0), common.GetLogger())

	events, err := backend.Stream(context.Background(), &interfaces.CompletionRequest{Prompt: "count"})
	require.NoError(t, err)

	var text string
	var done bool
	for event := range events {
		require.NoError(t, event.Err)
		text += event.Token
		done = event.Done
	}

	assert.Equal(t, "one two three", text)
	assert.True(t, done)
}

func TestOllamaEmbed_BatchOrderPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		fmt.Fprint(w, `{"embeddings": [[1, 0], [0, 1]]}`)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 0), common.GetLogger())

	vectors, err := backend.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOllamaEmbed_CountMismatchFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embeddings": [[1, 0]]}`)
	}))
	defer server.Close()

	backend := NewOllamaBackend(testConfig(server.URL, 0), common.GetLogger())

	_, err := backend.Embed(context.Background(), []string{"first", "second"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}
