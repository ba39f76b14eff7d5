// Package tools provides the tool framework and the built-in host tools.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier the model uses to call this tool.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Parameters returns the parameter schema for validation.
	Parameters() []Parameter

	// Execute runs the tool and returns its result text.
	Execute(ctx context.Context, args types.ToolArgs) (string, error)
}

// Parameter defines a tool parameter with validation rules.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ErrMissingParameter is wrapped when a required argument is absent.
var ErrMissingParameter = errors.New("missing required parameter")

// UnknownToolError reports an action naming a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// ExecutionError reports a tool that was found but failed.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %q: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Registry maps tool names to implementations. It is built once and
// never changes afterwards, so it is safe to share between sessions.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		name := tool.Name()
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool already registered: %s", name)
		}
		r.tools[name] = tool
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// Invoke resolves and runs a tool.
// Unknown names yield *UnknownToolError; every other failure is an *ExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, args types.ToolArgs) (string, error) {
	tool, exists := r.Resolve(name)
	if !exists {
		return "", &UnknownToolError{Name: name}
	}

	if err := validateArgs(tool, args); err != nil {
		return "", &ExecutionError{Tool: name, Err: err}
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		return "", &ExecutionError{Tool: name, Err: err}
	}
	return out, nil
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools returns all registered tools with their metadata, sorted by name.
func (r *Registry) ListTools() []types.ToolInfo {
	infos := make([]types.ToolInfo, 0, len(r.tools))
	for _, name := range r.List() {
		tool := r.tools[name]
		params := make([]types.ParameterInfo, 0, len(tool.Parameters()))
		for _, p := range tool.Parameters() {
			params = append(params, types.ParameterInfo{
				Name:        p.Name,
				Description: p.Description,
				Required:    p.Required,
			})
		}
		infos = append(infos, types.ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  params,
		})
	}
	return infos
}

// validateArgs checks that every required parameter is present.
func validateArgs(tool Tool, args types.ToolArgs) error {
	for _, def := range tool.Parameters() {
		if _, exists := args.Get(def.Name); def.Required && !exists {
			return fmt.Errorf("%w: %s", ErrMissingParameter, def.Name)
		}
	}
	return nil
}

// GenerateToolsPrompt creates the tools description for the LLM system prompt.
func (r *Registry) GenerateToolsPrompt() string {
	tools := r.ListTools()
	if len(tools) == 0 {
		return ""
	}

	var b strings.Builder
	for _, tool := range tools {
		args := make([]string, 0, len(tool.Parameters))
		for _, p := range tool.Parameters {
			args = append(args, p.Name)
		}
		fmt.Fprintf(&b, "- %s(%s): %s\n", tool.Name, strings.Join(args, ", "), tool.Description)
		for _, p := range tool.Parameters {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(&b, "    %s: %s%s\n", p.Name, p.Description, req)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
