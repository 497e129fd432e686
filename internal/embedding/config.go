package embedding

import "time"

type Config struct {
	Enabled   bool
	Model     string
	MaxLength *int
	BaseURL   string
	Timeout   time.Duration
}

// NewFromConfig builds an Embedder backed by Ollama, or returns nil when
// embeddings are disabled.
func NewFromConfig(cfg Config) (*Embedder, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var clientOpts []OllamaOption
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, WithTimeout(cfg.Timeout))
	}
	client, err := NewOllamaClient(cfg.BaseURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	opts := []EmbedderOption{WithModel(cfg.Model)}
	if cfg.MaxLength != nil {
		opts = append(opts, WithMaxLength(*cfg.MaxLength))
	}
	return NewEmbedder(client, opts...), nil
}
