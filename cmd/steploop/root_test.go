package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/steploop/internal/agent"
	"github.com/ashutoshrp06/steploop/internal/config"
	"github.com/ashutoshrp06/steploop/internal/tools"
	"github.com/ashutoshrp06/steploop/internal/types"
)

// resetFlags restores the package-level flag values after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		configPath, providerName, modelName, workDir, transcriptPath = "", "", "", "", ""
		maxIterations = 0
		verbose, interactive = false, false
	})
}

type cannedClient struct{ replies []string }

func (c *cannedClient) Send(ctx context.Context, transcript []types.Turn) (string, error) {
	r := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return r, nil
}

func (c *cannedClient) Info() string { return "canned" }

func TestApplyOverrides(t *testing.T) {
	resetFlags(t)
	providerName = config.ProviderOpenAI
	modelName = "gpt-4o-mini"
	workDir = "/tmp/work"
	maxIterations = 5

	cfg := config.DefaultConfig()
	applyOverrides(cfg)

	assert.Equal(t, config.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "/tmp/work", cfg.Tools.WorkDir)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
}

func TestApplyOverrides_KeepsConfigWhenUnset(t *testing.T) {
	resetFlags(t)
	cfg := config.DefaultConfig()
	applyOverrides(cfg)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadConfig_FromFlagPath(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "steploop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: llama3\nagent:\n  max_iterations: 7\n"), 0644))

	configPath = path
	modelName = "mistral"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
}

func TestLoadConfig_RejectsInvalidOverride(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "steploop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: llama3\n"), 0644))
	configPath = path
	providerName = "carrier-pigeon"

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestCreateLogger(t *testing.T) {
	resetFlags(t)
	cfg := config.DefaultConfig()

	logger, err := createLogger(cfg, true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "TUI without a log file must not log")

	cfg.Logging.File = filepath.Join(t.TempDir(), "steploop.log")
	logger, err = createLogger(cfg, true)
	require.NoError(t, err)
	logger.Info("Session started")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Session started")

	cfg.Logging.Level = "loud"
	_, err = createLogger(cfg, false)
	assert.Error(t, err)
}

func TestWriteTranscript(t *testing.T) {
	client := &cannedClient{replies: []string{
		`{"step":"think","content":"easy"}`,
		`{"step":"output","content":"Done"}`,
	}}
	cfg := config.DefaultConfig()
	cfg.Tools.WorkDir = t.TempDir()

	a, err := agent.New(agent.Config{AppConfig: cfg, Client: client})
	require.NoError(t, err)

	result, err := a.ProcessQuery(context.Background(), "say done")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "transcript.yaml")
	require.NoError(t, writeTranscript(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		SessionID string `yaml:"session_id"`
		Status    string `yaml:"status"`
		Output    string `yaml:"output"`
		Turns     []struct {
			Role string `yaml:"role"`
			Step *struct {
				Kind    string `yaml:"kind"`
				Content string `yaml:"content"`
			} `yaml:"step"`
		} `yaml:"turns"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	assert.Equal(t, result.SessionID, doc.SessionID)
	assert.Equal(t, "succeeded", doc.Status)
	assert.Equal(t, "Done", doc.Output)
	require.Len(t, doc.Turns, 3)
	assert.Equal(t, "user", doc.Turns[0].Role)
	assert.Equal(t, "think", doc.Turns[1].Step.Kind)
	assert.Equal(t, "output", doc.Turns[2].Step.Kind)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steploop.yaml")
	var out bytes.Buffer

	require.NoError(t, initConfig(&out, path))
	assert.Contains(t, out.String(), "Created "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().LLM.Model, cfg.LLM.Model)

	out.Reset()
	require.NoError(t, initConfig(&out, path))
	assert.Contains(t, out.String(), "already exists")
}

func TestShowConfig_MasksAPIKey(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "steploop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n  api_key: sk-secret\n"), 0644))
	configPath = path

	var out bytes.Buffer
	require.NoError(t, showConfig(&out))
	assert.NotContains(t, out.String(), "sk-secret")
	assert.Contains(t, out.String(), "********")
}

func TestPrintTools(t *testing.T) {
	registry, err := tools.NewDefaultRegistry(tools.HostConfig{WorkDir: t.TempDir()})
	require.NoError(t, err)

	var out bytes.Buffer
	printTools(&out, registry, true)

	assert.Contains(t, out.String(), "execCommand")
	assert.Contains(t, out.String(), "writeInFile")
	assert.Contains(t, out.String(), "fileName")
	assert.Contains(t, out.String(), "Total: 2 tools available")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	runVersion(cmd, nil)
	assert.Contains(t, out.String(), "steploop")
	assert.Contains(t, out.String(), Version)
}
