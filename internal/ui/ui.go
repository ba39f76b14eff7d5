// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// Model is the Bubble Tea model for the interactive step loop.
type Model struct {
	// UI Components
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	// State
	state       types.AgentState
	messages    []chatMessage
	currentTool *toolExecution
	iteration   int
	width       int
	height      int
	ready       bool
	quitting    bool
	err         error

	// Running session; events from any other session are dropped.
	session string
	cancel  context.CancelFunc

	// Agent interface (injected)
	processQuery QueryFunc
	tools        []types.ToolInfo
}

// QueryFunc starts a session for query under sessionID. The returned command
// yields the terminal event; canceling ctx aborts the session.
type QueryFunc func(ctx context.Context, sessionID, query string) tea.Cmd

// chatMessage represents one rendered entry in the history.
type chatMessage struct {
	role    string // "user", "think", "observe", "assistant", "system", "tool"
	content string
	tool    *toolExecution
}

// toolExecution tracks an action step and its observation.
type toolExecution struct {
	name     string
	args     types.ToolArgs
	output   string
	success  bool
	error    string
	duration string
	done     bool
}

// NewModel creates a new UI model. tools is shown by the "tools" command.
func NewModel(processQuery QueryFunc, tools []types.ToolInfo) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "What should I do? (e.g., 'create a file notes.txt containing Hello')"
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 80
	ti.TextStyle = styles.Input

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	return Model{
		textInput:    ti,
		spinner:      s,
		viewport:     vp,
		styles:       styles,
		state:        types.StateIdle,
		messages:     make([]chatMessage, 0),
		processQuery: processQuery,
		tools:        tools,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// headerHeight returns the number of terminal lines occupied by the banner.
func (m Model) headerHeight() int {
	banner := m.styles.BannerTitle.Render(Banner())
	return lipgloss.Height(banner) + 2
}

// footerHeight returns the number of terminal lines occupied by the input + help bar.
func (m Model) footerHeight() int {
	// 1 blank line + 1 prompt/input line + 1 newline + 1 help bar = 4
	return 4
}

// updateViewport rebuilds the viewport content and scrolls to the bottom.
func (m *Model) updateViewport() {
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.currentTool != nil && !m.currentTool.done {
		b.WriteString(m.renderToolInProgress())
		b.WriteString("\n")
	}

	if m.state != types.StateIdle {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.state == types.StateIdle {
				m.quitting = true
				return m, tea.Quit
			}
			m.abort()
			m.updateViewport()
			return m, nil

		case tea.KeyEnter:
			if m.state != types.StateIdle {
				return m, nil
			}

			query := strings.TrimSpace(m.textInput.Value())
			if query == "" {
				return m, nil
			}

			if handled, cmd := m.handleCommand(query); handled {
				m.updateViewport()
				return m, cmd
			}

			m.messages = append(m.messages, chatMessage{
				role:    "user",
				content: query,
			})

			m.textInput.SetValue("")
			m.state = types.StateThinking
			m.iteration = 0

			ctx, cancel := context.WithCancel(context.Background())
			m.session = uuid.NewString()
			m.cancel = cancel
			m.updateViewport()

			if m.processQuery != nil {
				cmds = append(cmds, m.processQuery(ctx, m.session, query))
			}

			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpWidth := msg.Width
		vpHeight := msg.Height - m.headerHeight() - m.footerHeight()
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}

		m.ready = true
		m.updateViewport()

	case types.AgentEvent:
		newModel, cmd := m.handleAgentEvent(msg)
		nm := newModel.(Model)
		nm.updateViewport()
		return nm, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.updateViewport()

	case errMsg:
		m.err = msg.err
		m.state = types.StateError
		m.updateViewport()
	}

	if m.state == types.StateIdle {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// errMsg wraps errors.
type errMsg struct{ err error }

// handleCommand processes special commands. It reports whether input was one.
func (m *Model) handleCommand(input string) (bool, tea.Cmd) {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return true, tea.Quit

	case "clear":
		m.messages = make([]chatMessage, 0)
		m.textInput.SetValue("")
		return true, nil

	case "help", "?":
		m.messages = append(m.messages, chatMessage{
			role: "system",
			content: `Available commands:
  help, ?     Show this help
  tools       List the tools the model may call
  clear       Clear history
  exit, quit  Exit

Example queries:
  "create a file notes.txt containing Hello"
  "list the files in this directory"
  "how much disk space is free?"`,
		})
		m.textInput.SetValue("")
		return true, nil

	case "tools":
		m.messages = append(m.messages, chatMessage{
			role:    "system",
			content: m.toolsHelp(),
		})
		m.textInput.SetValue("")
		return true, nil
	}

	return false, nil
}

func (m Model) toolsHelp() string {
	if len(m.tools) == 0 {
		return "No tools registered."
	}
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, tool := range m.tools {
		params := make([]string, 0, len(tool.Parameters))
		for _, p := range tool.Parameters {
			params = append(params, p.Name)
		}
		fmt.Fprintf(&b, "\n  %s(%s)\n    %s", tool.Name, strings.Join(params, ", "), tool.Description)
	}
	return b.String()
}

// handleAgentEvent processes events from the agent. Step events arrive
// through the program's Send while the session runs; the Done event is the
// result of the query command.
func (m Model) handleAgentEvent(event types.AgentEvent) (tea.Model, tea.Cmd) {
	if m.session == "" || event.SessionID != m.session {
		// late event from a session the user already aborted
		return m, nil
	}
	if event.Iteration > 0 {
		m.iteration = event.Iteration
	}

	switch {
	case event.Done:
		return m.finish(event), nil

	case event.Turn != nil && event.Turn.Step != nil:
		m.state = event.State
		m.addStep(*event.Turn.Step, event.ToolResult)

	case event.Error != nil:
		m.state = event.State
		m.messages = append(m.messages, chatMessage{
			role:    "system",
			content: fmt.Sprintf("Model reply rejected, retrying: %s", event.Error),
		})

	default:
		m.state = event.State
	}

	return m, m.spinner.Tick
}

func (m *Model) addStep(step types.Step, result *types.ExecutionResult) {
	switch step.Kind {
	case types.StepThink:
		m.messages = append(m.messages, chatMessage{role: "think", content: step.Content})

	case types.StepAction:
		m.currentTool = &toolExecution{name: step.Tool, args: step.Args}

	case types.StepObserve:
		if result == nil {
			m.messages = append(m.messages, chatMessage{role: "observe", content: step.Content})
			return
		}
		tool := m.currentTool
		if tool == nil {
			tool = &toolExecution{name: result.Tool, args: result.Args}
		}
		tool.success = result.Success
		tool.output = result.Output
		tool.error = result.Error
		tool.duration = result.Duration.String()
		tool.done = true
		m.messages = append(m.messages, chatMessage{role: "tool", tool: tool})
		m.currentTool = nil

	case types.StepOutput:
		m.messages = append(m.messages, chatMessage{role: "assistant", content: step.Content})
	}
}

// abort cancels the running session and returns to the prompt.
func (m *Model) abort() {
	m.release()
	m.messages = append(m.messages, chatMessage{role: "system", content: "Session aborted."})
	m.currentTool = nil
	m.state = types.StateIdle
}

func (m *Model) release() {
	if m.cancel != nil {
		m.cancel()
	}
	m.session = ""
	m.cancel = nil
}

func (m Model) finish(event types.AgentEvent) Model {
	m.release()
	if event.Error != nil {
		m.err = event.Error
		m.messages = append(m.messages, chatMessage{
			role:    "system",
			content: fmt.Sprintf("Error: %s", event.Error),
		})
	}
	m.currentTool = nil
	m.state = types.StateIdle
	return m
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.SystemMessage.Render("Goodbye!\n")
	}

	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(m.styles.BannerTitle.Render(Banner()))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.styles.Prompt.Render("> "))
	if m.state == types.StateIdle {
		b.WriteString(m.textInput.View())
	} else {
		b.WriteString(m.styles.StatusText.Render("(processing...)"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.App.Render(b.String())
}

// renderMessage renders a single history entry.
func (m Model) renderMessage(msg chatMessage) string {
	switch msg.role {
	case "user":
		return m.styles.UserMessage.Render("You: " + msg.content)

	case "think":
		return m.styles.ThinkMessage.Render("Thinking: " + msg.content)

	case "observe":
		return m.styles.ThinkMessage.Render("Observed: " + msg.content)

	case "assistant":
		return m.styles.AssistantMessage.Render("Assistant: " + msg.content)

	case "system":
		return m.styles.SystemMessage.Render(msg.content)

	case "tool":
		if msg.tool != nil {
			return m.renderToolResult(msg.tool)
		}
	}
	return ""
}

// renderToolResult renders a completed tool execution.
func (m Model) renderToolResult(t *toolExecution) string {
	var b strings.Builder

	b.WriteString(m.renderToolHeader(t))
	b.WriteString("\n")

	if t.success {
		b.WriteString(m.styles.ToolSuccess.Render("  Success"))
		if t.duration != "" && t.duration != "0s" {
			b.WriteString(m.styles.ToolParams.Render(fmt.Sprintf(" (%s)", t.duration)))
		}
		b.WriteString("\n")
		if t.output != "" {
			for _, line := range strings.Split(truncate(t.output, 300), "\n") {
				if line != "" {
					b.WriteString(m.styles.ToolOutput.Render("  | " + line))
					b.WriteString("\n")
				}
			}
		}
	} else {
		b.WriteString(m.styles.ToolError.Render("  Failed: " + t.error))
		b.WriteString("\n")
	}

	return m.styles.ToolBox.Render(b.String())
}

// renderToolInProgress renders a tool that's currently executing.
func (m Model) renderToolInProgress() string {
	var b strings.Builder

	b.WriteString(m.renderToolHeader(m.currentTool))
	b.WriteString("\n")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.styles.StatusText.Render("Executing..."))

	return m.styles.ToolBox.Render(b.String())
}

func (m Model) renderToolHeader(t *toolExecution) string {
	header := m.styles.ToolName.Render("Tool: " + t.name)
	if len(t.args) == 0 {
		return header
	}

	// fixed order keeps the view stable between frames
	params := make([]string, 0, len(t.args))
	for _, key := range []string{types.ArgInput, types.ArgFileName, types.ArgData} {
		if v, ok := t.args[key]; ok {
			params = append(params, fmt.Sprintf("%s=%q", key, truncate(v, 60)))
		}
	}
	return header + " " + m.styles.ToolParams.Render("("+strings.Join(params, ", ")+")")
}

// renderStatus renders the current processing status.
func (m Model) renderStatus() string {
	label := m.state.String()
	if m.iteration > 0 {
		label = fmt.Sprintf("%s (step %d)", label, m.iteration)
	}
	return fmt.Sprintf("%s %s",
		m.spinner.View(),
		m.styles.StateLabel.Render(label+"..."),
	)
}

// renderHelpBar renders the bottom help bar.
func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.HelpKey.Render("enter") + m.styles.HelpValue.Render(" send"),
		m.styles.HelpKey.Render("esc") + m.styles.HelpValue.Render(" abort/quit"),
		m.styles.HelpKey.Render("help") + m.styles.HelpValue.Render(" commands"),
		m.styles.HelpKey.Render("tools") + m.styles.HelpValue.Render(" list tools"),
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  |  "))
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
