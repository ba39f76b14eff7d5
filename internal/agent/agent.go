// Package agent implements the step loop: it drives a model through
// think, action, observe and output steps and dispatches tool calls.
package agent

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/fortify/retry"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/steploop/internal/config"
	"github.com/ashutoshrp06/steploop/internal/executor"
	"github.com/ashutoshrp06/steploop/internal/llm"
	"github.com/ashutoshrp06/steploop/internal/tools"
	"github.com/ashutoshrp06/steploop/internal/types"
	"github.com/ashutoshrp06/steploop/internal/validator"
)

// Agent orchestrates the interaction between user, model and tool execution.
// One Agent serves any number of sequential or concurrent sessions.
type Agent struct {
	cfg             *config.Config
	llmClient       llm.Client
	registry        *tools.Registry
	executor        *executor.Executor
	retrier         retry.Retry[types.Step]
	inputValidator  *validator.InputValidator
	outputValidator *validator.OutputValidator
	observer        func(types.AgentEvent)
	logger          *zap.Logger
}

// Config holds agent configuration.
type Config struct {
	AppConfig *config.Config
	Client    llm.Client      // built from AppConfig.LLM when nil
	Registry  *tools.Registry // built-in host tools when nil
	Observer  func(types.AgentEvent)
	Logger    *zap.Logger
}

// New creates a new agent with all components initialized.
func New(cfg Config) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.AppConfig == nil {
		cfg.AppConfig = config.DefaultConfig()
	}
	if err := cfg.AppConfig.Validate(); err != nil {
		return nil, err
	}

	if cfg.Registry == nil {
		registry, err := tools.NewDefaultRegistry(tools.HostConfig{
			WorkDir:        cfg.AppConfig.Tools.WorkDir,
			Shell:          cfg.AppConfig.Tools.Shell,
			CommandTimeout: cfg.AppConfig.CommandTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build tool registry: %w", err)
		}
		cfg.Registry = registry
	}

	if cfg.Client == nil {
		client, err := llm.NewClient(context.Background(), cfg.AppConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		cfg.Client = client
	}

	if cfg.Observer == nil {
		cfg.Observer = func(types.AgentEvent) {}
	}

	return &Agent{
		cfg:       cfg.AppConfig,
		llmClient: cfg.Client,
		registry:  cfg.Registry,
		executor:  executor.NewExecutor(cfg.Registry, cfg.Logger),
		retrier: retry.New[types.Step](retry.Config{
			MaxAttempts:        cfg.AppConfig.Agent.MaxConsecutiveFailures,
			InitialDelay:       cfg.AppConfig.RetryDelay(),
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: []error{errSessionEnded},
		}),
		inputValidator:  validator.NewInputValidator(),
		outputValidator: validator.NewOutputValidator(),
		observer:        cfg.Observer,
		logger:          cfg.Logger,
	}, nil
}

// ProcessQueryCmd returns a Bubble Tea command that runs a session for query
// under sessionID. Intermediate steps reach the UI through the observer; the
// returned message is the terminal event. Canceling ctx aborts the session.
func (a *Agent) ProcessQueryCmd(ctx context.Context, sessionID, query string) tea.Cmd {
	return func() tea.Msg {
		result, err := a.ProcessQuery(WithSessionID(ctx, sessionID), query)
		event := types.AgentEvent{SessionID: sessionID, Done: true, State: types.StateResponding}
		if result != nil {
			event.SessionID = result.SessionID
			event.Iteration = result.Iterations
			event.FinalAnswer = result.Output
		}
		if err != nil {
			event.State = types.StateError
			event.Error = err
		}
		return event
	}
}

// ProcessQuery runs a fresh session for query and returns its result.
// On failure the result is returned together with the halt reason so the
// transcript can still be inspected.
func (a *Agent) ProcessQuery(ctx context.Context, query string) (*Result, error) {
	if err := a.inputValidator.Validate(query); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	sanitizedQuery := a.inputValidator.Sanitize(query)
	prompt := llm.BuildPrompt(sanitizedQuery, a.registry.ListTools(), a.cfg.Prompt.MasterPromptPath)

	sess, err := newSession(sessionIDFrom(ctx), sanitizedQuery, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Session started",
		zap.String("session_id", sess.ID),
		zap.String("query", truncate(sanitizedQuery, 200)))

	a.run(ctx, sess)

	result := sess.result()
	if sess.Status() == StatusFailed {
		return result, sess.Err()
	}
	return result, nil
}

// Ping checks if the model provider is reachable.
func (a *Agent) Ping(ctx context.Context) error {
	pinger, ok := a.llmClient.(llm.Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return fmt.Errorf("LLM not reachable: %w", err)
	}
	return nil
}

// ListTools returns available tool information.
func (a *Agent) ListTools() []types.ToolInfo {
	return a.registry.ListTools()
}

// Close releases agent resources.
func (a *Agent) Close() error {
	if closer, ok := a.llmClient.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// LLMInfo returns information about the configured LLM.
func (a *Agent) LLMInfo() string {
	return fmt.Sprintf("%s (%s)", a.llmClient.Info(), a.cfg.LLM.Provider)
}

// truncate truncates a string to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
