package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

// ClaudeBackend generates completions through the Anthropic API. It is an
// optional cloud alternative to the local Ollama backend; it does not
// serve embeddings, so deployments using it still need a local embedding
// endpoint.
type ClaudeBackend struct {
	config  *common.ClaudeConfig
	client  anthropic.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeBackend creates a backend using the Anthropic API. The API key
// comes from configuration or the ANTHROPIC_API_KEY environment variable.
func NewClaudeBackend(config *common.Config, logger arbor.ILogger) (*ClaudeBackend, error) {
	if config.Claude.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the claude backend (set ANTHROPIC_API_KEY or claude.api_key)")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.Claude.APIKey),
	)

	backend := &ClaudeBackend{
		config:  &config.Claude,
		client:  client,
		timeout: config.LLM.Timeout.Std(),
		logger:  logger,
	}

	logger.Debug().
		Str("model", config.Claude.Model).
		Int("max_tokens", config.Claude.MaxTokens).
		Msg("Claude backend initialized")

	return backend, nil
}

// Name identifies the backend
func (b *ClaudeBackend) Name() string {
	return "claude"
}

// Complete blocks until the full response or the per-call deadline.
func (b *ClaudeBackend) Complete(ctx context.Context, req *interfaces.CompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	startTime := time.Now()

	resp, err := b.client.Messages.New(callCtx, b.buildParams(req))
	if err != nil {
		return "", classify(fmt.Errorf("Claude API call failed: %w", err))
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	b.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude completion finished")

	return response.String(), nil
}

// Stream forwards text deltas as they arrive from the API.
func (b *ClaudeBackend) Stream(ctx context.Context, req *interfaces.CompletionRequest) (<-chan interfaces.StreamEvent, error) {
	stream := b.client.Messages.NewStreaming(ctx, b.buildParams(req))

	events := make(chan interfaces.StreamEvent)

	go func() {
		defer close(events)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			token := event.Delta.Text
			if token == "" {
				continue
			}
			select {
			case events <- interfaces.StreamEvent{Token: token}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case events <- interfaces.StreamEvent{Err: classify(err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- interfaces.StreamEvent{Done: true}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

// Embed is not supported by the Anthropic API.
func (b *ClaudeBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("claude backend does not serve embeddings; configure embeddings.endpoint to point at a local embedding server")
}

// HealthCheck sends a minimal probe message.
func (b *ClaudeBackend) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := b.client.Messages.New(probeCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.config.Model),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	return nil
}

// Close is a no-op for the HTTP-based client
func (b *ClaudeBackend) Close() error {
	return nil
}

func (b *ClaudeBackend) buildParams(req *interfaces.CompletionRequest) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	return params
}
