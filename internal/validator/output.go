package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// DecodeError reports model output that is not a well-formed step.
type DecodeError struct {
	Reason string
	Raw    string
}

func (e *DecodeError) Error() string {
	return "decode step: " + e.Reason
}

// OutputValidator decodes raw model output into protocol steps.
type OutputValidator struct{}

func NewOutputValidator() *OutputValidator {
	return &OutputValidator{}
}

// Decode converts one model reply into exactly one step.
// The whole reply, after fence stripping, must be a single JSON object;
// prose around the object is rejected.
func (v *OutputValidator) Decode(raw string) (types.Step, error) {
	return Decode(raw)
}

// Decode is the package-level form of OutputValidator.Decode.
func Decode(raw string) (types.Step, error) {
	text := StripFences(raw)
	if text == "" {
		return types.Step{}, &DecodeError{Reason: "empty output", Raw: raw}
	}

	var w types.WireStep
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&w); err != nil {
		return types.Step{}, &DecodeError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.Step{}, &DecodeError{Reason: "trailing content after JSON object", Raw: raw}
	}

	return fromWire(w, raw)
}

func fromWire(w types.WireStep, raw string) (types.Step, error) {
	if w.Step == nil {
		return types.Step{}, &DecodeError{Reason: "missing step field", Raw: raw}
	}

	kind := types.StepKind(*w.Step)
	if !kind.Valid() {
		return types.Step{}, &DecodeError{Reason: fmt.Sprintf("unrecognized step %q", *w.Step), Raw: raw}
	}

	if kind != types.StepAction {
		if w.Content == nil {
			return types.Step{}, &DecodeError{Reason: fmt.Sprintf("%s step missing content", kind), Raw: raw}
		}
		return types.Step{Kind: kind, Content: *w.Content}, nil
	}

	if w.Tool == nil || strings.TrimSpace(*w.Tool) == "" {
		return types.Step{}, &DecodeError{Reason: "action step missing tool", Raw: raw}
	}

	args := types.ToolArgs{}
	if w.Input != nil {
		args[types.ArgInput] = *w.Input
	}
	if w.FileName != nil {
		args[types.ArgFileName] = *w.FileName
	}
	if w.Data != nil {
		args[types.ArgData] = *w.Data
	}

	_, hasInput := args[types.ArgInput]
	_, hasFile := args[types.ArgFileName]
	_, hasData := args[types.ArgData]
	if !hasInput && !(hasFile && hasData) {
		return types.Step{}, &DecodeError{Reason: "action step needs input or fileName and data", Raw: raw}
	}

	return types.Step{Kind: types.StepAction, Tool: *w.Tool, Args: args}, nil
}

// StripFences trims whitespace and removes a surrounding markdown code
// fence, including its language tag.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Encode renders a step in the wire form Decode accepts.
func Encode(step types.Step) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(step.Wire()); err != nil {
		return "", fmt.Errorf("encode step: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
