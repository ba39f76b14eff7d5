package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ashutoshrp06/steploop/internal/types"
)

const providerOpenAI = "openai"

// OpenAIConfig configures any OpenAI-compatible /chat/completions endpoint.
type OpenAIConfig struct {
	BaseURL     string // empty means api.openai.com
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Nudge       string
}

type OpenAIClient struct {
	client      *openai.Client
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	nudge       string
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		baseURL:     clientCfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		nudge:       cfg.Nudge,
	}
}

func (c *OpenAIClient) Send(ctx context.Context, transcript []types.Turn) (string, error) {
	msgs, err := Messages(transcript, c.nudge)
	if err != nil {
		return "", &ProviderError{Provider: providerOpenAI, Err: err}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &ProviderError{Provider: providerOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: providerOpenAI, Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Info() string {
	return fmt.Sprintf("%s @ %s", c.model, c.baseURL)
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case types.RoleModel:
			role = openai.ChatMessageRoleAssistant
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
