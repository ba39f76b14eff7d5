// Package config handles steploop configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. STEPLOOP_LLM_MODEL.
const EnvPrefix = "STEPLOOP"

// Supported model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config holds all steploop configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Prompt  PromptConfig  `mapstructure:"prompt" yaml:"prompt"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	ContinuePrompt string  `mapstructure:"continue_prompt" yaml:"continue_prompt"`
}

// AgentConfig bounds a session.
type AgentConfig struct {
	MaxIterations          int `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	TimeoutSeconds         int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RetryDelayMs           int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
}

// ToolsConfig configures the host tools.
type ToolsConfig struct {
	WorkDir               string   `mapstructure:"workdir" yaml:"workdir"`
	Shell                 []string `mapstructure:"shell" yaml:"shell,omitempty"`
	CommandTimeoutSeconds int      `mapstructure:"command_timeout_seconds" yaml:"command_timeout_seconds"`
}

// PromptConfig locates the master prompt template.
type PromptConfig struct {
	MasterPromptPath string `mapstructure:"master_prompt_path" yaml:"master_prompt_path"`
}

// LoggingConfig controls the zap logger built by the CLI.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       ProviderOllama,
			Endpoint:       "http://localhost:11434",
			Model:          "qwen2.5:7b",
			TimeoutSeconds: 120,
			Temperature:    0.2,
			MaxTokens:      2048,
			ContinuePrompt: "Continue",
		},
		Agent: AgentConfig{
			MaxIterations:          30,
			MaxConsecutiveFailures: 3,
			TimeoutSeconds:         600,
			RetryDelayMs:           500,
		},
		Tools: ToolsConfig{
			WorkDir:               ".",
			CommandTimeoutSeconds: 60,
		},
		Prompt: PromptConfig{
			MasterPromptPath: "prompts/master_prompt.txt",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPaths lists config files in order of precedence.
func DefaultPaths() []string {
	paths := []string{"steploop.local.yaml", "steploop.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".steploop", "config.yaml"))
	}
	return paths
}

// Load reads the config file at path, applies environment overrides and
// fills unset keys with defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadFromPaths loads the first config file that exists. With none present
// it returns defaults with environment overrides applied.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.continue_prompt", d.LLM.ContinuePrompt)
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.max_consecutive_failures", d.Agent.MaxConsecutiveFailures)
	v.SetDefault("agent.timeout_seconds", d.Agent.TimeoutSeconds)
	v.SetDefault("agent.retry_delay_ms", d.Agent.RetryDelayMs)
	v.SetDefault("tools.workdir", d.Tools.WorkDir)
	v.SetDefault("tools.shell", []string{})
	v.SetDefault("tools.command_timeout_seconds", d.Tools.CommandTimeoutSeconds)
	v.SetDefault("prompt.master_prompt_path", d.Prompt.MasterPromptPath)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", "")

	// Provider-native key variables are honoured when no prefixed one is set.
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unsupported provider %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model: must not be empty"))
	}
	if c.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("llm.timeout_seconds: must be positive"))
	}
	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, errors.New("agent.max_iterations: must be positive"))
	}
	if c.Agent.MaxConsecutiveFailures <= 0 {
		errs = append(errs, errors.New("agent.max_consecutive_failures: must be positive"))
	}
	if c.Agent.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("agent.timeout_seconds: must not be negative"))
	}
	if c.Agent.RetryDelayMs < 0 {
		errs = append(errs, errors.New("agent.retry_delay_ms: must not be negative"))
	}
	if c.Tools.CommandTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("tools.command_timeout_seconds: must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LLMTimeout returns the per-call model timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// SessionTimeout returns the wall-clock budget of one session; zero means unbounded.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

// RetryDelay returns the initial backoff between failed model attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Agent.RetryDelayMs) * time.Millisecond
}

// CommandTimeout returns the per-call execCommand timeout.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Tools.CommandTimeoutSeconds) * time.Second
}
