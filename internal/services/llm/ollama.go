package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

// OllamaBackend talks to a local Ollama server over its HTTP API. It is
// the default backend: generation via /api/generate, embeddings via
// /api/embed.
type OllamaBackend struct {
	config        *common.LLMConfig
	embeddings    *common.EmbeddingsConfig
	embedEndpoint string
	client        *http.Client
	limiter       *rate.Limiter
	logger        arbor.ILogger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewOllamaBackend creates a backend for a local Ollama server.
func NewOllamaBackend(config *common.Config, logger arbor.ILogger) *OllamaBackend {
	var limiter *rate.Limiter
	if config.LLM.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.LLM.RatePerSec), 1)
	}

	backend := &OllamaBackend{
		config:        &config.LLM,
		embeddings:    &config.Embeddings,
		embedEndpoint: config.EmbeddingsEndpoint(),
		client:        &http.Client{}, // Deadlines come from per-call contexts
		limiter:       limiter,
		logger:        logger,
	}

	logger.Debug().
		Str("endpoint", config.LLM.Endpoint).
		Str("model", config.LLM.Model).
		Dur("timeout", config.LLM.Timeout.Std()).
		Int("max_retries", config.LLM.MaxRetries).
		Msg("Ollama backend initialized")

	return backend
}

// Name identifies the backend
func (b *OllamaBackend) Name() string {
	return "ollama"
}

// Complete sends a single blocking generation request. Connection and
// timeout failures are retried with exponential backoff; an error payload
// from the server is returned as-is.
func (b *OllamaBackend) Complete(ctx context.Context, req *interfaces.CompletionRequest) (string, error) {
	body := generateRequest{
		Model:  b.config.Model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	var result string
	err := b.withRetries(ctx, "generate", func(callCtx context.Context) error {
		resp, err := b.post(callCtx, b.config.Endpoint+"/api/generate", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		var payload generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("failed to decode generate response: %w", err)
		}
		if payload.Error != "" {
			return fmt.Errorf("ollama error: %s", payload.Error)
		}

		result = payload.Response
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Stream sends a generation request with streaming enabled and forwards
// each fragment as it arrives. The channel is closed at end of stream;
// cancelling ctx aborts the read promptly.
func (b *OllamaBackend) Stream(ctx context.Context, req *interfaces.CompletionRequest) (<-chan interfaces.StreamEvent, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	body := generateRequest{
		Model:  b.config.Model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: true,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	resp, err := b.post(ctx, b.config.Endpoint+"/api/generate", body)
	if err != nil {
		return nil, classify(err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	events := make(chan interfaces.StreamEvent)

	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var fragment generateResponse
			if err := json.Unmarshal(line, &fragment); err != nil {
				b.sendEvent(ctx, events, interfaces.StreamEvent{Err: fmt.Errorf("malformed stream fragment: %w", err)})
				return
			}
			if fragment.Error != "" {
				b.sendEvent(ctx, events, interfaces.StreamEvent{Err: fmt.Errorf("ollama error: %s", fragment.Error)})
				return
			}

			if !b.sendEvent(ctx, events, interfaces.StreamEvent{Token: fragment.Response, Done: fragment.Done}) {
				return
			}
			if fragment.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			b.sendEvent(ctx, events, interfaces.StreamEvent{Err: classify(err)})
		}
	}()

	return events, nil
}

// sendEvent delivers an event unless the consumer has gone away.
func (b *OllamaBackend) sendEvent(ctx context.Context, events chan<- interfaces.StreamEvent, event interfaces.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// Embed converts a batch of texts into vectors in input order. The whole
// batch fails atomically on any backend error.
func (b *OllamaBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := embedRequest{
		Model: b.embeddings.Model,
		Input: texts,
	}

	var vectors [][]float32
	err := b.withRetries(ctx, "embed", func(callCtx context.Context) error {
		resp, err := b.post(callCtx, b.embedEndpoint+"/api/embed", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		var payload embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("failed to decode embed response: %w", err)
		}
		if payload.Error != "" {
			return fmt.Errorf("ollama error: %s", payload.Error)
		}
		if len(payload.Embeddings) != len(texts) {
			return fmt.Errorf("embed count mismatch: sent %d texts, got %d vectors", len(texts), len(payload.Embeddings))
		}

		vectors = payload.Embeddings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// HealthCheck probes the Ollama server with a lightweight request.
func (b *OllamaBackend) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, b.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections
func (b *OllamaBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// withRetries runs fn up to MaxRetries+1 times. Only connection and
// timeout errors are retried; backoff doubles from 500ms and honors ctx
// cancellation while waiting.
func (b *OllamaBackend) withRetries(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 8 * time.Second

	var lastErr error
	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if err := b.wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout.Std())
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < b.config.MaxRetries {
			b.logger.Warn().
				Err(err).
				Str("operation", operation).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Ollama call failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return classify(lastErr)
}

// wait blocks on the rate limiter when one is configured.
func (b *OllamaBackend) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

func (b *OllamaBackend) post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return b.client.Do(httpReq)
}

// checkStatus maps HTTP status codes to errors. Server-side failures are
// retryable; client-side failures are not.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	err := fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s", ErrModelUnavailable, err)
	}
	return err
}
