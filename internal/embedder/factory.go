package embedder

import "fmt"

// Config selects and parameterizes an embedding provider.
type Config struct {
	Provider  string // "openai", "ollama", or "local"
	Model     string // provider-specific model name, empty for default
	APIKey    string // required for openai
	OllamaURL string // optional, defaults to http://localhost:11434
}

// New creates an embedder from configuration.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.Model), nil
	case "local":
		return NewLocalEmbedder(), nil
	case "":
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
