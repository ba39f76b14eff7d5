package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ashutoshrp06/steploop/internal/types"
)

const providerGemini = "gemini"

// geminiNudge is sent when no continue prompt is configured. A chat session
// can only be advanced by a user message.
const geminiNudge = "Continue"

// GeminiConfig configures the Google Gemini adapter.
type GeminiConfig struct {
	Endpoint    string // optional API endpoint override
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Nudge       string
}

type GeminiClient struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
	nudge   string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, &ProviderError{Provider: providerGemini, Err: errors.New("missing API key")}
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, &ProviderError{Provider: providerGemini, Err: fmt.Errorf("create client: %w", err)}
	}

	model := client.GenerativeModel(cfg.Model)
	gen := genai.GenerationConfig{ResponseMIMEType: "application/json"}
	temp := cfg.Temperature
	gen.Temperature = &temp
	if cfg.MaxTokens > 0 {
		mt := int32(min(cfg.MaxTokens, math.MaxInt32)) // #nosec G115
		gen.MaxOutputTokens = &mt
	}
	model.GenerationConfig = gen

	return &GeminiClient{
		client:  client,
		model:   model,
		name:    cfg.Model,
		timeout: cfg.Timeout,
		nudge:   cfg.Nudge,
	}, nil
}

func (c *GeminiClient) Send(ctx context.Context, transcript []types.Turn) (string, error) {
	system, history, last, err := c.contents(transcript)
	if err != nil {
		return "", &ProviderError{Provider: providerGemini, Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The model value is shared; the system instruction is per call.
	model := *c.model
	model.SystemInstruction = system
	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", &ProviderError{Provider: providerGemini, Err: err}
	}

	text := geminiText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &ProviderError{Provider: providerGemini, Err: ErrEmptyResponse}
	}
	return text, nil
}

// contents maps the transcript onto the system instruction, the chat history
// and the user message that advances the chat.
func (c *GeminiClient) contents(transcript []types.Turn) (*genai.Content, []*genai.Content, *genai.Content, error) {
	nudge := c.nudge
	if nudge == "" {
		nudge = geminiNudge
	}
	msgs, err := Messages(transcript, nudge)
	if err != nil {
		return nil, nil, nil, err
	}

	system, history, last := splitGeminiHistory(msgs)
	if last == nil {
		return nil, nil, nil, errors.New("no user message to send")
	}
	return system, history, last, nil
}

func (c *GeminiClient) Info() string {
	return c.name + " @ gemini"
}

// Close releases the underlying client connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// splitGeminiHistory separates system text, prior chat history and the final
// user message that is sent to the chat session.
func splitGeminiHistory(msgs []Message) (*genai.Content, []*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == types.RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.Text(m.Content))
			continue
		}
		role := "user"
		if m.Role == types.RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	if len(contents) == 0 || contents[len(contents)-1].Role != "user" {
		return system, contents, nil
	}
	return system, contents[:len(contents)-1], contents[len(contents)-1]
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}
