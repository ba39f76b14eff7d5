package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// Printer writes agent events as styled lines. It is the observer used by
// one-shot runs, where there is no Bubble Tea program to send events to.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	styles  Styles
	verbose bool
}

// NewPrinter creates a Printer writing to out. With verbose set, tool
// output is printed in full instead of a short preview.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, styles: DefaultStyles(), verbose: verbose}
}

// Observe prints one event. It is safe to use as an agent observer.
func (p *Printer) Observe(event types.AgentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case event.Turn != nil && event.Turn.Step != nil:
		p.printStep(*event.Turn.Step, event.ToolResult)
	case event.Error != nil:
		p.line(p.styles.ToolError.Render(fmt.Sprintf("  ! model reply rejected: %v", event.Error)))
	}
}

func (p *Printer) printStep(step types.Step, result *types.ExecutionResult) {
	switch step.Kind {
	case types.StepThink:
		p.line(p.styles.ThinkMessage.Render("think   " + step.Content))

	case types.StepAction:
		args := make([]string, 0, len(step.Args))
		for _, key := range []string{types.ArgInput, types.ArgFileName, types.ArgData} {
			if v, ok := step.Args[key]; ok {
				args = append(args, fmt.Sprintf("%s=%q", key, truncate(v, 80)))
			}
		}
		p.line(p.styles.ToolName.Render("  action  "+step.Tool) + " " +
			p.styles.ToolParams.Render("("+strings.Join(args, ", ")+")"))

	case types.StepObserve:
		style := p.styles.ToolOutput
		if result != nil && !result.Success {
			style = p.styles.ToolError
		}
		content := step.Content
		if !p.verbose {
			content = truncate(content, 300)
		}
		for i, l := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
			prefix := "  observe "
			if i > 0 {
				prefix = "        | "
			}
			p.line(style.Render(prefix + l))
		}

	case types.StepOutput:
		p.line("")
		p.line(p.styles.AssistantMessage.Render(step.Content))
	}
}

// Failure prints the halt reason of a failed session.
func (p *Printer) Failure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line("")
	p.line(p.styles.ToolError.Render("Session failed: " + err.Error()))
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.out, s)
}
