package llm

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ashutoshrp06/steploop/internal/types"
)

const defaultMasterPromptPath = "prompts/master_prompt.txt"

// Template variables understood by BuildPrompt.
const (
	varToolRegistry = "{{TOOL_REGISTRY}}"
	varHostOS       = "{{HOST_OS}}"
	varUserQuery    = "{{USER_QUERY}}"
)

// BuildPrompt loads the master prompt template and substitutes the tool
// registry, host OS and user query. Falls back to the built-in template if
// the file cannot be read.
func BuildPrompt(query string, tools []types.ToolInfo, masterPromptPath string) string {
	if masterPromptPath == "" {
		masterPromptPath = defaultMasterPromptPath
	}

	template := fallbackTemplate
	if raw, err := os.ReadFile(masterPromptPath); err == nil && strings.TrimSpace(string(raw)) != "" {
		template = string(raw)
	}

	r := strings.NewReplacer(
		varToolRegistry, buildToolRegistry(tools),
		varHostOS, hostOS(),
		varUserQuery, query,
	)
	return r.Replace(template)
}

// ─── template section builders ────────────────────────────────────────────────

// buildToolRegistry lists each tool as a call signature followed by its
// parameters, the way the model is expected to reference them.
func buildToolRegistry(tools []types.ToolInfo) string {
	if len(tools) == 0 {
		return "No tools available."
	}

	var sb strings.Builder
	for _, tool := range tools {
		names := make([]string, 0, len(tool.Parameters))
		for _, p := range tool.Parameters {
			names = append(names, p.Name)
		}
		sb.WriteString(fmt.Sprintf("- %s(%s): %s\n", tool.Name, strings.Join(names, ", "), tool.Description))
		for _, p := range tool.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			line := fmt.Sprintf("    - %s (%s)", p.Name, req)
			if p.Description != "" {
				line += ": " + p.Description
			}
			sb.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func hostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows (commands run through cmd /C)"
	default:
		return runtime.GOOS + " (commands run through sh -c)"
	}
}

const fallbackTemplate = `You are a careful assistant that solves tasks on the user's machine one step at a time.

You work in a strict loop of steps: think, action, observe, output.
- think: reason about what to do next. Use several think steps before acting.
- action: call exactly one tool. Then stop and wait; the result arrives as an observe step.
- observe: the result of the previous action. You never invent these.
- output: the final answer for the user. Emit it only when the task is complete.

Rules:
- Reply with exactly one JSON object per message and nothing else. No prose, no markdown.
- Only call tools listed below, with exactly the arguments they declare.
- After an action, wait for the observe step before doing anything else.
- If a tool reports an error, think about it and try another approach.

Reply formats:
{"step":"think","content":"..."}
{"step":"action","tool":"execCommand","input":"<command line>"}
{"step":"action","tool":"writeInFile","fileName":"<path>","data":"<full file content>"}
{"step":"output","content":"..."}

Available tools:
{{TOOL_REGISTRY}}

Host operating system: {{HOST_OS}}

Example:
Query: how many files are in the current directory?
{"step":"think","content":"I need to count the entries in the current directory."}
{"step":"action","tool":"execCommand","input":"ls -1 | wc -l"}
{"step":"observe","content":"12"}
{"step":"output","content":"There are 12 files in the current directory."}

Query: {{USER_QUERY}}`
