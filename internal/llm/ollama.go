package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ashutoshrp06/steploop/internal/ollama"
	"github.com/ashutoshrp06/steploop/internal/types"
)

const providerOllama = "ollama"

// OllamaConfig configures the local Ollama adapter.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Nudge       string
}

type OllamaClient struct {
	client *ollama.Client
	nudge  string
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	oc := ollama.DefaultConfig()
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.Timeout > 0 {
		oc.Timeout = cfg.Timeout
	}
	oc.Temperature = cfg.Temperature
	oc.NumPredict = cfg.MaxTokens

	return &OllamaClient{client: ollama.NewClient(oc), nudge: cfg.Nudge}
}

func (c *OllamaClient) Send(ctx context.Context, transcript []types.Turn) (string, error) {
	msgs, err := Messages(transcript, c.nudge)
	if err != nil {
		return "", &ProviderError{Provider: providerOllama, Err: err}
	}

	chat := make([]ollama.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		switch m.Role {
		case types.RoleModel:
			role = "assistant"
		case types.RoleSystem:
			role = "system"
		}
		chat = append(chat, ollama.ChatMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.Chat(ctx, chat)
	if err != nil {
		return "", &ProviderError{Provider: providerOllama, Err: err}
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", &ProviderError{Provider: providerOllama, Err: ErrEmptyResponse}
	}
	return resp.Message.Content, nil
}

func (c *OllamaClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return &ProviderError{Provider: providerOllama, Err: err}
	}
	return nil
}

func (c *OllamaClient) Info() string {
	return c.client.ModelInfo()
}
