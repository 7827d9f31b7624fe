package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Groq serves an OpenAI-compatible API, so one client covers both; the
// defaults target Groq because that is where the synthesis model runs.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.7
)

type openAIClient struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
}

func NewOpenAIClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(cfg),
		apiKey:      opts.APIKey,
		model:       model,
		temperature: temperature,
	}
}

func (c *openAIClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	req.Messages = make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
