// Package types defines shared data structures for the step loop.
package types

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// StepKind is the discriminator of a protocol step.
type StepKind string

const (
	StepThink   StepKind = "think"
	StepAction  StepKind = "action"
	StepObserve StepKind = "observe"
	StepOutput  StepKind = "output"
)

// Valid reports whether k is one of the four protocol step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepThink, StepAction, StepObserve, StepOutput:
		return true
	}
	return false
}

// Wire names of the tool arguments an action step may carry.
const (
	ArgInput    = "input"
	ArgFileName = "fileName"
	ArgData     = "data"
)

// ToolArgs holds the string arguments of an action step, keyed by wire name.
type ToolArgs map[string]string

// Get returns the named argument and whether it was present.
func (a ToolArgs) Get(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Step is one discrete unit of model output.
// Think, Observe and Output carry Content; Action carries Tool and Args.
type Step struct {
	Kind    StepKind `yaml:"kind"`
	Content string   `yaml:"content,omitempty"`
	Tool    string   `yaml:"tool,omitempty"`
	Args    ToolArgs `yaml:"args,omitempty"`
}

// Think builds a think step.
func Think(content string) Step { return Step{Kind: StepThink, Content: content} }

// Observe builds an observe step.
func Observe(content string) Step { return Step{Kind: StepObserve, Content: content} }

// Output builds an output step.
func Output(content string) Step { return Step{Kind: StepOutput, Content: content} }

// Action builds an action step.
func Action(tool string, args ToolArgs) Step {
	return Step{Kind: StepAction, Tool: tool, Args: args}
}

// WireStep is the JSON object exchanged with the model.
// Pointer fields distinguish an absent field from an empty one.
type WireStep struct {
	Step     *string `json:"step"`
	Content  *string `json:"content,omitempty"`
	Tool     *string `json:"tool,omitempty"`
	Input    *string `json:"input,omitempty"`
	FileName *string `json:"fileName,omitempty"`
	Data     *string `json:"data,omitempty"`
}

// Wire converts the step to its wire form, carrying only the fields of its kind.
func (s Step) Wire() WireStep {
	kind := string(s.Kind)
	w := WireStep{Step: &kind}
	if s.Kind != StepAction {
		content := s.Content
		w.Content = &content
		return w
	}
	tool := s.Tool
	w.Tool = &tool
	if v, ok := s.Args[ArgInput]; ok {
		w.Input = &v
	}
	if v, ok := s.Args[ArgFileName]; ok {
		w.FileName = &v
	}
	if v, ok := s.Args[ArgData]; ok {
		w.Data = &v
	}
	return w
}

// MarshalJSON encodes the step in wire form.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Wire())
}

// String returns the wire form of the step.
func (s Step) String() string {
	b, err := json.Marshal(s.Wire())
	if err != nil {
		return string(s.Kind)
	}
	return string(b)
}

// Turn is one immutable entry of a conversation transcript.
type Turn struct {
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text,omitempty" yaml:"text,omitempty"`
	Step      *Step     `json:"step,omitempty" yaml:"step,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// UserTurn builds a user turn carrying free text.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// ModelTurn builds a model turn carrying exactly one step.
func ModelTurn(step Step) Turn {
	return Turn{Role: RoleModel, Step: &step, Timestamp: time.Now()}
}

// Payload returns the text replayed to the model for this turn.
func (t Turn) Payload() string {
	if t.Step != nil {
		return t.Step.String()
	}
	return t.Text
}

// AgentState represents the current state of agent processing.
type AgentState int

const (
	StateIdle AgentState = iota
	StateThinking
	StateToolExecuting
	StateResponding
	StateError
)

// String returns a human-readable state name.
func (s AgentState) String() string {
	names := [...]string{
		"Idle",
		"Waiting for model",
		"Executing tool",
		"Responding",
		"Error",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// ExecutionResult holds the outcome of one dispatched action.
type ExecutionResult struct {
	Tool     string
	Args     ToolArgs
	Success  bool
	Output   string
	Error    string
	Duration time.Duration
}

// Observation renders the result as the content of an observe step.
func (r ExecutionResult) Observation() string {
	if r.Success {
		return r.Output
	}
	if r.Output != "" {
		return "error: " + r.Error + "\n" + r.Output
	}
	return "error: " + r.Error
}

// AgentEvent is sent during agent processing to update the UI.
type AgentEvent struct {
	SessionID   string
	State       AgentState
	Iteration   int
	Turn        *Turn
	ToolResult  *ExecutionResult
	FinalAnswer string
	Error       error
	Done        bool
}

// ParameterInfo describes one declared tool parameter.
type ParameterInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// ToolInfo contains metadata about a tool for display and prompting.
type ToolInfo struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Parameters  []ParameterInfo `json:"parameters" yaml:"parameters"`
}
