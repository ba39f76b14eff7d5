package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/steploop/internal/config"
)

const defaultConfigFile = "steploop.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long: `View the effective configuration or create a default config file.

Values come from the config file, then STEPLOOP_* environment variables
(for example STEPLOOP_LLM_MODEL), then command line flags.`,
	RunE: runConfig,
}

var (
	configInit bool
	configShow bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if configInit {
		path := configPath
		if path == "" {
			path = defaultConfigFile
		}
		return initConfig(out, path)
	}
	if configShow {
		return showConfig(out)
	}
	return nil
}

func initConfig(out io.Writer, path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(path+" already exists. Use --show to view it."))
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("create config: %w", err)
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
		Render("Created "+path+" with default settings."))
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - LLM provider, endpoint and model")
	fmt.Fprintln(out, "  - iteration, failure and time budgets")
	fmt.Fprintln(out, "  - tool working directory and command timeout")
	fmt.Fprintln(out, "  - master prompt path and logging")
	return nil
}

func showConfig(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
		fmt.Fprintln(out, lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(fmt.Sprintf("Could not load config (%v). Showing defaults:\n", err)))
	} else {
		fmt.Fprintln(out, lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true).
			Render("Current Configuration:\n"))
	}

	shown := *cfg
	if shown.LLM.APIKey != "" {
		shown.LLM.APIKey = "********"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
		Render("Config file locations (in order of precedence):"))
	for i, path := range config.DefaultPaths() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, path)
	}
	return nil
}
