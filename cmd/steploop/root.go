package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ashutoshrp06/steploop/internal/agent"
	"github.com/ashutoshrp06/steploop/internal/config"
	"github.com/ashutoshrp06/steploop/internal/types"
)

var (
	configPath     string
	providerName   string
	modelName      string
	workDir        string
	maxIterations  int
	transcriptPath string
	verbose        bool
	interactive    bool
)

var rootCmd = &cobra.Command{
	Use:   "steploop [query]",
	Short: "Step-by-step AI agent for your terminal",
	Long: `
███████╗████████╗███████╗██████╗ ██╗      ██████╗  ██████╗ ██████╗
██╔════╝╚══██╔══╝██╔════╝██╔══██╗██║     ██╔═══██╗██╔═══██╗██╔══██╗
███████╗   ██║   █████╗  ██████╔╝██║     ██║   ██║██║   ██║██████╔╝
╚════██║   ██║   ██╔══╝  ██╔═══╝ ██║     ██║   ██║██║   ██║██╔═══╝
███████║   ██║   ███████╗██║     ███████╗╚██████╔╝╚██████╔╝██║
╚══════╝   ╚═╝   ╚══════╝╚═╝     ╚══════╝ ╚═════╝  ╚═════╝ ╚═╝

  An agent that thinks, runs one tool at a time, observes the result
  and answers when the task is done.

Usage:
  steploop "create a file notes.txt containing Hello"
  steploop --it`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		if interactive {
			return runInteractive()
		}
		if len(args) > 0 {
			return runOneShot(cmd.Context(), strings.Join(args, " "))
		}
		return cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printError("steploop", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&interactive, "it", false, "Start interactive mode")
	rootCmd.Flags().StringVar(&transcriptPath, "transcript", "", "Write the session transcript as YAML to this file")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Model provider: ollama, openai or gemini")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model to use")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "Directory tools run in")
	rootCmd.PersistentFlags().IntVar(&maxIterations, "max-iterations", 0, "Maximum model steps per session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromPaths(config.DefaultPaths()...)
	}
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if providerName != "" {
		cfg.LLM.Provider = providerName
	}
	if modelName != "" {
		cfg.LLM.Model = modelName
	}
	if workDir != "" {
		cfg.Tools.WorkDir = workDir
	}
	if maxIterations > 0 {
		cfg.Agent.MaxIterations = maxIterations
	}
}

// createLogger builds the zap logger. The TUI owns the terminal, so there
// logs only go to logging.file.
func createLogger(cfg *config.Config, tui bool) (*zap.Logger, error) {
	if tui && cfg.Logging.File == "" {
		return zap.NewNop(), nil
	}
	if verbose && !tui {
		return zap.NewDevelopment()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Logging.File != "" {
		zcfg.OutputPaths = []string{cfg.Logging.File}
		zcfg.ErrorOutputPaths = []string{cfg.Logging.File}
	}
	return zcfg.Build()
}

// initAgent loads config, checks model connectivity, and returns a ready agent.
func initAgent(observer func(types.AgentEvent), tui bool) (*agent.Agent, *config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := createLogger(cfg, tui)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	agentInstance, err := agent.New(agent.Config{
		AppConfig: cfg,
		Observer:  observer,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize agent: %w", err)
	}

	fmt.Print(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Connecting to LLM... "))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := agentInstance.Ping(ctx); err != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗"))
		fmt.Println()
		printConnectionHelp(cfg)
		agentInstance.Close()
		return nil, nil, nil, err
	}
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓"))
	fmt.Printf("Using model: %s\n\n", agentInstance.LLMInfo())

	return agentInstance, cfg, logger, nil
}

func printError(msg string, err error) {
	fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

func printConnectionHelp(cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	fmt.Println(errStyle.Render(fmt.Sprintf("Could not reach %s at %s", cfg.LLM.Provider, cfg.LLM.Endpoint)))
	fmt.Println()
	if cfg.LLM.Provider == config.ProviderOllama {
		fmt.Println(helpStyle.Render("Make sure Ollama is running:"))
		fmt.Println(cmdStyle.Render("  ollama serve"))
		fmt.Println()
		fmt.Println(helpStyle.Render("And pull the required model:"))
		fmt.Println(cmdStyle.Render("  ollama pull " + cfg.LLM.Model))
		fmt.Println()
	}
	fmt.Println(helpStyle.Render("Or configure a different endpoint:"))
	fmt.Println(cmdStyle.Render("  steploop config --init, then set llm.endpoint"))
}
