package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ashutoshrp06/steploop/internal/config"
	"github.com/ashutoshrp06/steploop/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tools the model can call.

Examples:
  steploop tools           # List all tools
  steploop tools --verbose # Show parameter details`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			cfg = config.DefaultConfig()
			applyOverrides(cfg)
		}
		registry, err := tools.NewDefaultRegistry(tools.HostConfig{
			WorkDir:        cfg.Tools.WorkDir,
			Shell:          cfg.Tools.Shell,
			CommandTimeout: cfg.CommandTimeout(),
		})
		if err != nil {
			return err
		}
		printTools(cmd.OutOrStdout(), registry, verbose)
		return nil
	},
}

func printTools(out io.Writer, registry *tools.Registry, detailed bool) {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	toolStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	fmt.Fprintln(out, headerStyle.Render("Available Tools"))
	fmt.Fprintln(out)

	infos := registry.ListTools()
	for _, info := range infos {
		fmt.Fprintf(out, "  %s\n", toolStyle.Render(info.Name))
		fmt.Fprintf(out, "    %s\n", descStyle.Render(info.Description))

		if detailed && len(info.Parameters) > 0 {
			fmt.Fprintln(out, "    Parameters:")
			for _, p := range info.Parameters {
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Fprintf(out, "      %s%s\n", paramStyle.Render(p.Name), req)
				if p.Description != "" {
					fmt.Fprintf(out, "        %s\n", descStyle.Render(p.Description))
				}
			}
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, descStyle.Render(fmt.Sprintf("  Total: %d tools available", len(infos))))
	if !detailed {
		fmt.Fprintln(out, descStyle.Render("  Use --verbose for parameter details"))
	}
}
