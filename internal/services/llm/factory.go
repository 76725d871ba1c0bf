package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
)

// NewModelBackend creates the backend selected by configuration. The
// provider is fixed for the lifetime of the process; there is no runtime
// switching.
func NewModelBackend(cfg *common.Config, logger arbor.ILogger) (interfaces.ModelBackend, error) {
	logger.Info().Str("provider", cfg.LLM.Provider).Msg("Initializing model backend")

	switch cfg.LLM.Provider {
	case "ollama":
		if cfg.LLM.Endpoint == "" {
			return nil, fmt.Errorf("llm.endpoint is required for the ollama backend")
		}
		return NewOllamaBackend(cfg, logger), nil

	case "claude":
		return NewClaudeBackend(cfg, logger)

	case "mock":
		return NewMockBackend(cfg.Embeddings.Dimension), nil

	default:
		return nil, fmt.Errorf("invalid llm provider '%s': must be 'ollama', 'claude', or 'mock'", cfg.LLM.Provider)
	}
}
