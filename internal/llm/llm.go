// Package llm wraps chat-completion access for the synthesis agents.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoAPIKey is returned at call time when no key was configured.
// Agents absorb it the same way they absorb any other completion
// failure.
var ErrNoAPIKey = errors.New("llm: api key not configured")

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}
