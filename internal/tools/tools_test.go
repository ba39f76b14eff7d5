package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// MockTool for testing the framework
type MockTool struct {
	name        string
	description string
	params      []Parameter
	execFunc    func(ctx context.Context, args types.ToolArgs) (string, error)
}

func (m *MockTool) Name() string            { return m.name }
func (m *MockTool) Description() string     { return m.description }
func (m *MockTool) Parameters() []Parameter { return m.params }
func (m *MockTool) Execute(ctx context.Context, args types.ToolArgs) (string, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, args)
	}
	return "mock output", nil
}

func TestNewRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry(&MockTool{name: "echo"}, &MockTool{name: "echo"})
	if err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestNewRegistry_EmptyName(t *testing.T) {
	if _, err := NewRegistry(&MockTool{name: " "}); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}

func TestMustNewRegistry_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustNewRegistry(&MockTool{name: "a"}, &MockTool{name: "a"})
}

func TestRegistry_Resolve(t *testing.T) {
	registry := MustNewRegistry(&MockTool{name: "test-tool"})

	found, ok := registry.Resolve("test-tool")
	if !ok {
		t.Fatal("expected to find tool")
	}
	if found.Name() != "test-tool" {
		t.Fatalf("expected 'test-tool', got %s", found.Name())
	}

	if _, ok := registry.Resolve("nonexistent"); ok {
		t.Fatal("expected not to find nonexistent tool")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := MustNewRegistry(&MockTool{name: "writeInFile"}, &MockTool{name: "execCommand"})

	names := registry.List()
	if len(names) != 2 || names[0] != "execCommand" || names[1] != "writeInFile" {
		t.Fatalf("List() = %v, want [execCommand writeInFile]", names)
	}
}

func TestRegistry_Invoke_Success(t *testing.T) {
	registry := MustNewRegistry(&MockTool{
		name:   "echo",
		params: []Parameter{{Name: "input", Required: true}},
		execFunc: func(ctx context.Context, args types.ToolArgs) (string, error) {
			return "echo: " + args["input"], nil
		},
	})

	out, err := registry.Invoke(context.Background(), "echo", types.ToolArgs{"input": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "echo: hello" {
		t.Errorf("Invoke() = %q, want %q", out, "echo: hello")
	}
}

func TestRegistry_Invoke_UnknownTool(t *testing.T) {
	registry := MustNewRegistry(&MockTool{name: "echo"})

	_, err := registry.Invoke(context.Background(), "deleteEverything", types.ToolArgs{"input": "/"})

	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownToolError, got %T (%v)", err, err)
	}
	if unknown.Name != "deleteEverything" {
		t.Errorf("Name = %q, want %q", unknown.Name, "deleteEverything")
	}
	if err.Error() != "unknown tool: deleteEverything" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRegistry_Invoke_MissingParameter(t *testing.T) {
	called := false
	registry := MustNewRegistry(&MockTool{
		name:   "writer",
		params: []Parameter{{Name: "fileName", Required: true}, {Name: "data", Required: true}},
		execFunc: func(ctx context.Context, args types.ToolArgs) (string, error) {
			called = true
			return "", nil
		},
	})

	_, err := registry.Invoke(context.Background(), "writer", types.ToolArgs{"fileName": "a.txt"})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %T", err)
	}
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("expected ErrMissingParameter in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "data") {
		t.Errorf("error should name the parameter: %v", err)
	}
	if called {
		t.Error("tool should not run with missing parameters")
	}
}

func TestRegistry_Invoke_ToolFailure(t *testing.T) {
	cause := errors.New("boom")
	registry := MustNewRegistry(&MockTool{
		name: "broken",
		execFunc: func(ctx context.Context, args types.ToolArgs) (string, error) {
			return "", cause
		},
	})

	_, err := registry.Invoke(context.Background(), "broken", nil)

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %T", err)
	}
	if execErr.Tool != "broken" {
		t.Errorf("Tool = %q, want %q", execErr.Tool, "broken")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
}

func TestRegistry_ListTools(t *testing.T) {
	registry, err := NewDefaultRegistry(HostConfig{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}

	infos := registry.ListTools()
	if len(infos) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(infos))
	}
	if infos[0].Name != "execCommand" || infos[1].Name != "writeInFile" {
		t.Errorf("unexpected order: %s, %s", infos[0].Name, infos[1].Name)
	}
	if len(infos[1].Parameters) != 2 || !infos[1].Parameters[0].Required {
		t.Errorf("writeInFile parameters = %+v", infos[1].Parameters)
	}
}

func TestRegistry_GenerateToolsPrompt(t *testing.T) {
	registry, err := NewDefaultRegistry(HostConfig{})
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}

	prompt := registry.GenerateToolsPrompt()
	for _, want := range []string{"execCommand(input)", "writeInFile(fileName, data)", "(required)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	empty := MustNewRegistry()
	if got := empty.GenerateToolsPrompt(); got != "" {
		t.Errorf("empty registry prompt = %q, want empty", got)
	}
}
