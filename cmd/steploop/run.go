package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/steploop/internal/agent"
	"github.com/ashutoshrp06/steploop/internal/ui"
)

// runOneShot runs a single session and prints its steps as they happen.
func runOneShot(ctx context.Context, query string) error {
	printer := ui.NewPrinter(os.Stdout, verbose)

	agentInstance, _, logger, err := initAgent(printer.Observe, false)
	if err != nil {
		return err
	}
	defer agentInstance.Close()
	defer logger.Sync()

	fmt.Printf("%s %s\n\n",
		lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true).Render("Query:"),
		query)

	result, runErr := agentInstance.ProcessQuery(ctx, query)
	if runErr != nil && result != nil {
		printer.Failure(runErr)
	}

	if result != nil && transcriptPath != "" {
		if err := writeTranscript(transcriptPath, result); err != nil {
			printError("write transcript", err)
		} else {
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
				Render("\nTranscript written to " + transcriptPath))
		}
	}

	if result != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render(
			fmt.Sprintf("\n%d steps, %d rejected replies, %s", result.Iterations, result.Failures, result.Duration.Round(time.Millisecond))))
	}
	return runErr
}

// writeTranscript exports a session result as YAML.
func writeTranscript(path string, result *agent.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
