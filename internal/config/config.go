// Package config builds one immutable configuration from a .env file and
// the process environment. Validation happens up front so a misconfigured
// process fails before any document is touched.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrMissing is returned when a required configuration value is absent
var ErrMissing = errors.New("missing required configuration")

// Defaults applied when the environment leaves a value unset.
const (
	DefaultChunkSize    = 1000
	DefaultSearchLimit  = 10
	DefaultEmbedWorkers = 4
	DefaultProvider     = "openai"
)

// Config holds everything the process needs. Built once at startup; never
// mutated afterward.
type Config struct {
	NotionToken string

	DBPath string

	EmbeddingProvider string // "openai", "ollama", or "local"
	EmbeddingModel    string
	OpenAIAPIKey      string
	OllamaURL         string

	ChunkSize    int
	EmbedWorkers int
	SearchLimit  int

	WorkspaceName string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	// A missing .env is fine; explicit environment always wins because
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := &Config{
		NotionToken:       os.Getenv("NOTION_TOKEN"),
		DBPath:            os.Getenv("NOTIONVEC_DB_PATH"),
		EmbeddingProvider: os.Getenv("NOTIONVEC_EMBEDDING_PROVIDER"),
		EmbeddingModel:    os.Getenv("NOTIONVEC_EMBEDDING_MODEL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OllamaURL:         os.Getenv("OLLAMA_URL"),
		WorkspaceName:     os.Getenv("NOTIONVEC_WORKSPACE"),
		ChunkSize:         DefaultChunkSize,
		EmbedWorkers:      DefaultEmbedWorkers,
		SearchLimit:       DefaultSearchLimit,
	}

	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = DefaultProvider
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for default db path: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".notionvec", "index.db")
	}

	var err error
	if cfg.ChunkSize, err = intEnv("NOTIONVEC_CHUNK_SIZE", cfg.ChunkSize); err != nil {
		return nil, err
	}
	if cfg.EmbedWorkers, err = intEnv("NOTIONVEC_EMBED_WORKERS", cfg.EmbedWorkers); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = intEnv("NOTIONVEC_SEARCH_LIMIT", cfg.SearchLimit); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can actually drive a run.
func (c *Config) Validate() error {
	if c.NotionToken == "" {
		return fmt.Errorf("%w: NOTION_TOKEN", ErrMissing)
	}
	switch c.EmbeddingProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY (provider openai)", ErrMissing)
		}
	case "ollama", "local":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("NOTIONVEC_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("NOTIONVEC_EMBED_WORKERS must be positive, got %d", c.EmbedWorkers)
	}
	return nil
}

// intEnv parses an optional integer environment variable.
func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
