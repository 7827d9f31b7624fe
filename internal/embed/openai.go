package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "text-embedding-3-small"

type openAIEmbedder struct {
	client    *openai.Client
	apiKey    string
	model     string
	dimension int
}

// NewOpenAI talks to any OpenAI-compatible embeddings endpoint; set
// BaseURL to point it somewhere other than api.openai.com.
func NewOpenAI(opts Options) Embedder {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		apiKey:    opts.APIKey,
		model:     model,
		dimension: opts.Dimension,
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	results := make([][]float32, len(resp.Data))
	for i, datum := range resp.Data {
		if e.dimension > 0 && len(datum.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(datum.Embedding))
		}
		results[i] = datum.Embedding
	}
	return results, nil
}
