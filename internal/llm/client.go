// Package llm adapts model providers to the step loop. Every adapter sends
// the full ordered transcript and returns the model's raw reply text.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashutoshrp06/steploop/internal/config"
	"github.com/ashutoshrp06/steploop/internal/types"
)

// Client sends a transcript to a model and returns its raw reply.
type Client interface {
	Send(ctx context.Context, transcript []types.Turn) (string, error)
	Info() string
}

// Pinger is implemented by clients that can check provider reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrEmptyTranscript is returned when there is nothing to send.
var ErrEmptyTranscript = errors.New("empty transcript")

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// ProviderError reports a failed model call: transport, auth, quota or an empty reply.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Message is a provider-neutral chat message.
type Message struct {
	Role    types.Role
	Content string
}

// Messages flattens a transcript into chat messages. When the transcript ends
// with a model turn, a transient user nudge is appended so the provider sees
// a user message last; the nudge is never part of the transcript itself.
func Messages(transcript []types.Turn, nudge string) ([]Message, error) {
	if len(transcript) == 0 {
		return nil, ErrEmptyTranscript
	}

	msgs := make([]Message, 0, len(transcript)+1)
	for _, turn := range transcript {
		msgs = append(msgs, Message{Role: turn.Role, Content: turn.Payload()})
	}

	if transcript[len(transcript)-1].Role == types.RoleModel && nudge != "" {
		msgs = append(msgs, Message{Role: types.RoleUser, Content: nudge})
	}
	return msgs, nil
}

// NewClient builds the adapter selected by cfg.LLM.Provider.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:     hostedEndpoint(cfg.LLM.Endpoint),
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Nudge:       cfg.LLM.ContinuePrompt,
		}), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{
			Endpoint:    hostedEndpoint(cfg.LLM.Endpoint),
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Nudge:       cfg.LLM.ContinuePrompt,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.LLM.Endpoint,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Nudge:       cfg.LLM.ContinuePrompt,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.LLM.Provider)
	}
}

// hostedEndpoint drops the default local Ollama endpoint, which is only
// meaningful for the ollama provider.
func hostedEndpoint(endpoint string) string {
	if endpoint == config.DefaultConfig().LLM.Endpoint {
		return ""
	}
	return endpoint
}
