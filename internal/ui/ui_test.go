package ui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashutoshrp06/steploop/internal/types"
)

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return next.(Model)
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

// running returns a model that is waiting on session s1.
func running(m Model) Model {
	m.state = types.StateThinking
	m.session = "s1"
	return m
}

func stepEvent(state types.AgentState, step types.Step, result *types.ExecutionResult) types.AgentEvent {
	turn := types.ModelTurn(step)
	return types.AgentEvent{SessionID: "s1", State: state, Iteration: 1, Turn: &turn, ToolResult: result}
}

func TestBanner(t *testing.T) {
	banner := Banner()
	if !strings.Contains(banner, "think  >  act  >  observe  >  answer") {
		t.Error("Banner should contain the tagline")
	}
	if lines := strings.Split(banner, "\n"); len(lines) < 3 {
		t.Errorf("Banner should have at least 3 lines, got %d", len(lines))
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil, nil)

	if model.err != nil {
		t.Errorf("New model should have no error, got: %v", model.err)
	}
	if model.quitting {
		t.Error("New model should not be quitting initially")
	}
	if model.state != types.StateIdle {
		t.Errorf("New model state = %v, want Idle", model.state)
	}
	if view := model.View(); view != "Initializing..." {
		t.Errorf("View before sizing = %q", view)
	}
	if !reflect.DeepEqual(model.spinner.Style, model.styles.Spinner) {
		t.Error("spinner should use the theme's Spinner style")
	}
	if !reflect.DeepEqual(model.textInput.TextStyle, model.styles.Input) {
		t.Error("text input should use the theme's Input style")
	}
}

func TestEnterStartsQuery(t *testing.T) {
	var got, gotSession string
	model := sized(NewModel(func(ctx context.Context, sessionID, q string) tea.Cmd {
		got, gotSession = q, sessionID
		return nil
	}, nil))
	model.textInput.SetValue("  list files  ")

	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})

	if got != "list files" {
		t.Errorf("processQuery got %q", got)
	}
	if model.state != types.StateThinking {
		t.Errorf("state = %v, want Thinking", model.state)
	}
	if gotSession == "" || gotSession != model.session {
		t.Errorf("session = %q, model tracks %q", gotSession, model.session)
	}
	if len(model.messages) != 1 || model.messages[0].role != "user" {
		t.Fatalf("messages = %+v", model.messages)
	}

	// input is ignored while a session runs
	got = ""
	model.textInput.SetValue("again")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	if got != "" {
		t.Error("query started while busy")
	}
}

func TestStepEventsRender(t *testing.T) {
	model := running(sized(NewModel(nil, nil)))

	model = send(model, stepEvent(types.StateThinking, types.Think("need a file"), nil))
	action := types.Action("writeInFile", types.ToolArgs{types.ArgFileName: "notes.txt", types.ArgData: "Hello"})
	model = send(model, stepEvent(types.StateThinking, action, nil))

	if model.currentTool == nil || model.currentTool.name != "writeInFile" {
		t.Fatalf("currentTool = %+v", model.currentTool)
	}

	result := &types.ExecutionResult{
		Tool:     "writeInFile",
		Args:     action.Args,
		Success:  true,
		Output:   "Data written into notes.txt",
		Duration: time.Millisecond,
	}
	model = send(model, stepEvent(types.StateThinking, types.Observe(result.Output), result))
	model = send(model, stepEvent(types.StateResponding, types.Output("Created notes.txt"), nil))

	if model.currentTool != nil {
		t.Error("currentTool should be cleared after observe")
	}

	roles := make([]string, 0, len(model.messages))
	for _, msg := range model.messages {
		roles = append(roles, msg.role)
	}
	if want := "think,tool,assistant"; strings.Join(roles, ",") != want {
		t.Errorf("roles = %v, want %s", roles, want)
	}

	content := model.viewport.View()
	for _, want := range []string{"Thinking: need a file", "Tool: writeInFile", "Data written into notes.txt", "Assistant: Created notes.txt"} {
		if !strings.Contains(content, want) {
			t.Errorf("viewport missing %q", want)
		}
	}
}

func TestDoneEventReturnsToIdle(t *testing.T) {
	model := running(sized(NewModel(nil, nil)))

	model = send(model, types.AgentEvent{SessionID: "s1", Done: true, State: types.StateError, Error: errors.New("iteration budget exceeded")})

	if model.state != types.StateIdle {
		t.Errorf("state = %v, want Idle", model.state)
	}
	if model.session != "" {
		t.Errorf("session %q still tracked after Done", model.session)
	}
	last := model.messages[len(model.messages)-1]
	if last.role != "system" || !strings.Contains(last.content, "iteration budget exceeded") {
		t.Errorf("last message = %+v", last)
	}
}

func TestRejectedReplyIsShown(t *testing.T) {
	model := running(sized(NewModel(nil, nil)))

	model = send(model, types.AgentEvent{SessionID: "s1", State: types.StateThinking, Iteration: 1, Error: errors.New("decode step: not a JSON object")})

	if len(model.messages) != 1 || !strings.Contains(model.messages[0].content, "retrying") {
		t.Errorf("messages = %+v", model.messages)
	}
	if model.state != types.StateThinking {
		t.Errorf("state = %v, want Thinking", model.state)
	}
}

func TestEscAbortsRunningSession(t *testing.T) {
	var started []string
	var contexts []context.Context
	model := sized(NewModel(func(ctx context.Context, sessionID, q string) tea.Cmd {
		started = append(started, sessionID)
		contexts = append(contexts, ctx)
		return nil
	}, nil))

	model.textInput.SetValue("first query")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	model = send(model, tea.KeyMsg{Type: tea.KeyEsc})

	if model.state != types.StateIdle {
		t.Fatalf("state after esc = %v, want Idle", model.state)
	}
	if model.quitting {
		t.Fatal("esc while running should not quit")
	}
	if err := contexts[0].Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("first session context err = %v, want canceled", err)
	}

	model.textInput.SetValue("second query")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(started) != 2 || started[0] == started[1] {
		t.Fatalf("sessions started = %v", started)
	}
	before := len(model.messages)

	// the aborted session still reports its last steps and its halt
	stale := stepEvent(types.StateThinking, types.Think("still going"), nil)
	stale.SessionID = started[0]
	model = send(model, stale)
	model = send(model, types.AgentEvent{SessionID: started[0], Done: true, State: types.StateError, Error: errors.New("iteration budget exceeded")})

	if len(model.messages) != before {
		t.Errorf("stale events added messages: %+v", model.messages[before:])
	}
	if model.state != types.StateThinking {
		t.Errorf("state = %v, want Thinking while the second session runs", model.state)
	}
	if model.session != started[1] {
		t.Errorf("tracked session = %q, want %q", model.session, started[1])
	}
	if contexts[1].Err() != nil {
		t.Error("second session context canceled by a stale event")
	}

	current := stepEvent(types.StateResponding, types.Output("done"), nil)
	current.SessionID = started[1]
	model = send(model, current)
	model = send(model, types.AgentEvent{SessionID: started[1], Done: true, State: types.StateResponding})
	if model.state != types.StateIdle {
		t.Errorf("state = %v, want Idle after the second session ends", model.state)
	}
	if contexts[1].Err() == nil {
		t.Error("finished session context should be released")
	}
}

func TestEscWhenIdleQuits(t *testing.T) {
	model := sized(NewModel(nil, nil))
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(Model).quitting || cmd == nil {
		t.Error("esc when idle should quit")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate(strings.Repeat("ü", 70), 60)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ü", 60) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
	if got := truncate("short", 60); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
}

func TestCommands(t *testing.T) {
	tools := []types.ToolInfo{{
		Name:        "execCommand",
		Description: "Runs a shell command",
		Parameters:  []types.ParameterInfo{{Name: "input", Required: true}},
	}}
	model := sized(NewModel(nil, tools))

	model.textInput.SetValue("tools")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(model.messages) != 1 || !strings.Contains(model.messages[0].content, "execCommand(input)") {
		t.Fatalf("tools output = %+v", model.messages)
	}

	model.textInput.SetValue("help")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(model.messages) != 2 {
		t.Fatalf("help not shown: %+v", model.messages)
	}

	model.textInput.SetValue("clear")
	model = send(model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(model.messages) != 0 {
		t.Errorf("clear left %d messages", len(model.messages))
	}

	model.textInput.SetValue("exit")
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !next.(Model).quitting || cmd == nil {
		t.Error("exit should quit")
	}
}
