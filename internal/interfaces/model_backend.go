package interfaces

import "context"

// CompletionRequest is a backend-agnostic prompt for a single completion
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// StreamEvent is one fragment of a streaming completion. Err is non-nil
// on the final event of a stream that terminated abnormally; the channel
// is closed after the last event either way.
type StreamEvent struct {
	Token string
	Done  bool
	Err   error
}

// ModelBackend sends prompts to a language model. Implementations are
// selected by configuration at construction time (local HTTP server,
// cloud API, or a deterministic mock for tests).
type ModelBackend interface {
	// Complete blocks until the full response or the per-call deadline.
	// Transient connection failures are retried with exponential backoff;
	// a well-formed error response from the model is not retried.
	Complete(ctx context.Context, req *CompletionRequest) (string, error)

	// Stream returns text fragments in arrival order. Cancelling ctx stops
	// reading and releases the underlying connection promptly; the channel
	// is closed at end of stream.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamEvent, error)

	// Embed turns texts into fixed-dimension vectors, order-preserving.
	// The whole batch fails atomically on a backend error.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// HealthCheck verifies the backend can handle requests
	HealthCheck(ctx context.Context) error

	// Name identifies the backend ("ollama", "claude", "mock")
	Name() string

	Close() error
}
