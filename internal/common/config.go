package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Embeddings  EmbeddingsConfig `toml:"embeddings"`
	Index       IndexConfig      `toml:"index"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Chunker     ChunkerConfig    `toml:"chunker"`
	Generation  GenerationConfig `toml:"generation"`
	Research    ResearchConfig   `toml:"research"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// LLMConfig configures the model backend used for generation
type LLMConfig struct {
	Provider    string   `toml:"provider" validate:"oneof=ollama claude mock"` // Backend selected at construction time
	Endpoint    string   `toml:"endpoint"`                                     // Ollama server base URL
	Model       string   `toml:"model"`
	Timeout     Duration `toml:"timeout" validate:"gt=0"` // Per-call deadline
	MaxRetries  int      `toml:"max_retries" validate:"gte=0,lte=10"`
	Temperature float32  `toml:"temperature"`
	RatePerSec  float64  `toml:"rate_per_sec"` // Max model calls per second (0 = unlimited)
}

// ClaudeConfig configures the optional Anthropic cloud backend
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

type EmbeddingsConfig struct {
	Endpoint  string `toml:"endpoint"` // Embedding server base URL (defaults to llm.endpoint)
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension" validate:"gt=0"` // Fixed process-wide vector dimension
	BatchSize int    `toml:"batch_size" validate:"gt=0"`
}

type IndexConfig struct {
	Path string `toml:"path" validate:"required"` // Snapshot file location
}

type RetrievalConfig struct {
	TopK int `toml:"top_k" validate:"gt=0"`
}

type ChunkerConfig struct {
	TargetTokens  int `toml:"target_tokens" validate:"gt=0"`
	OverlapTokens int `toml:"overlap_tokens" validate:"gte=0"`
}

// GenerationConfig controls the course generation orchestrator
type GenerationConfig struct {
	Budget      Duration `toml:"budget" validate:"gt=0"` // Overall wall-clock budget per request
	Concurrency int      `toml:"concurrency" validate:"gt=0"`
}

type ResearchConfig struct {
	UserAgent      string   `toml:"user_agent"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxBodySize    int      `toml:"max_body_size"`
}

type SchedulerConfig struct {
	Enabled          bool   `toml:"enabled"`
	SnapshotSchedule string `toml:"snapshot_schedule"` // Cron schedule for index snapshots
	CleanupSchedule  string `toml:"cleanup_schedule"`  // Cron schedule for stale job cleanup
	StaleJobAge      string `toml:"stale_job_age"`     // e.g. "30m" - running jobs older than this are failed
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Endpoint:    "http://127.0.0.1:11434",
			Model:       "phi3",
			Timeout:     Duration(120 * time.Second), // A single structure call can take minutes on small hardware
			MaxRetries:  2,
			Temperature: 0.7,
			RatePerSec:  0, // Unlimited by default - the local server is the bottleneck anyway
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		Embeddings: EmbeddingsConfig{
			Model:     "nomic-embed-text",
			Dimension: 768,
			BatchSize: 32,
		},
		Index: IndexConfig{
			Path: "./data/index/vectors.idx",
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Chunker: ChunkerConfig{
			TargetTokens:  500,
			OverlapTokens: 50,
		},
		Generation: GenerationConfig{
			Budget:      Duration(5 * time.Minute),
			Concurrency: 4,
		},
		Research: ResearchConfig{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: Duration(10 * time.Second),
			MaxBodySize:    10 * 1024 * 1024, // 10MB
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			SnapshotSchedule: "*/5 * * * *", // Every 5 minutes
			CleanupSchedule:  "0 * * * *",   // Hourly
			StaleJobAge:      "30m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration from a single file with env overrides
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct-level constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunker.OverlapTokens >= c.Chunker.TargetTokens {
		return fmt.Errorf("invalid configuration: chunker overlap_tokens (%d) must be less than target_tokens (%d)",
			c.Chunker.OverlapTokens, c.Chunker.TargetTokens)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DOCEO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("DOCEO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCEO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("DOCEO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if provider := os.Getenv("DOCEO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if endpoint := os.Getenv("DOCEO_LLM_ENDPOINT"); endpoint != "" {
		config.LLM.Endpoint = endpoint
	}
	if model := os.Getenv("DOCEO_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if timeout := os.Getenv("DOCEO_LLM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.LLM.Timeout = Duration(d)
		}
	}
	if retries := os.Getenv("DOCEO_LLM_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.LLM.MaxRetries = n
		}
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = apiKey
	}

	if endpoint := os.Getenv("DOCEO_EMBEDDINGS_ENDPOINT"); endpoint != "" {
		config.Embeddings.Endpoint = endpoint
	}
	if model := os.Getenv("DOCEO_EMBEDDINGS_MODEL"); model != "" {
		config.Embeddings.Model = model
	}
	if dim := os.Getenv("DOCEO_EMBEDDINGS_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			config.Embeddings.Dimension = n
		}
	}

	if path := os.Getenv("DOCEO_INDEX_PATH"); path != "" {
		config.Index.Path = path
	}
	if topK := os.Getenv("DOCEO_RETRIEVAL_TOP_K"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = n
		}
	}
	if target := os.Getenv("DOCEO_CHUNKER_TARGET_TOKENS"); target != "" {
		if n, err := strconv.Atoi(target); err == nil {
			config.Chunker.TargetTokens = n
		}
	}
	if overlap := os.Getenv("DOCEO_CHUNKER_OVERLAP_TOKENS"); overlap != "" {
		if n, err := strconv.Atoi(overlap); err == nil {
			config.Chunker.OverlapTokens = n
		}
	}
	if budget := os.Getenv("DOCEO_GENERATION_BUDGET"); budget != "" {
		if d, err := time.ParseDuration(budget); err == nil {
			config.Generation.Budget = Duration(d)
		}
	}

	if level := os.Getenv("DOCEO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DOCEO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// EmbeddingsEndpoint returns the embeddings server URL, falling back to the LLM endpoint
func (c *Config) EmbeddingsEndpoint() string {
	if c.Embeddings.Endpoint != "" {
		return c.Embeddings.Endpoint
	}
	return c.LLM.Endpoint
}
