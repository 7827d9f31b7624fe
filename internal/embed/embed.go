// Package embed produces fixed-size float32 vectors for text, used by
// the ranker to score documents against a query.
package embed

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrNoAPIKey is returned at call time when the configured provider
// needs a key that was never supplied. Callers treat it like any other
// embedding failure.
var ErrNoAPIKey = errors.New("embed: api key not configured")

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	APIKey     string
	BaseURL    string
	OllamaHost string
}

// New picks an implementation by provider name. OpenAI-compatible is
// the default; a missing key does not fail here, it fails per call so
// the rest of the pipeline keeps running.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOllama:
		return NewOllama(opts), nil
	case ProviderOpenAI, "":
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}
