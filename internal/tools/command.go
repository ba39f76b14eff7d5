package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// ============================================================================
// execCommand
// ============================================================================

// DefaultCommandTimeout bounds a single execCommand call.
const DefaultCommandTimeout = 60 * time.Second

// ErrCommandTimeout is wrapped when a command outlives its timeout.
var ErrCommandTimeout = errors.New("command timed out")

// CommandTool runs a shell command on the host and returns its combined output.
type CommandTool struct {
	shell   []string
	workDir string
	timeout time.Duration
}

// CommandOption configures a CommandTool.
type CommandOption func(*CommandTool)

// WithShell overrides the shell invocation, e.g. []string{"bash", "-c"}.
func WithShell(shell ...string) CommandOption {
	return func(c *CommandTool) {
		if len(shell) > 0 {
			c.shell = shell
		}
	}
}

// WithWorkDir sets the directory commands run in.
func WithWorkDir(dir string) CommandOption {
	return func(c *CommandTool) { c.workDir = dir }
}

// WithTimeout sets the per-call timeout; zero keeps the default.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *CommandTool) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCommandTool(opts ...CommandOption) *CommandTool {
	c := &CommandTool{
		shell:   defaultShell(),
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

func (c *CommandTool) Name() string { return "execCommand" }

func (c *CommandTool) Description() string {
	return "Runs a shell command on the host machine and returns its combined stdout and stderr."
}

func (c *CommandTool) Parameters() []Parameter {
	return []Parameter{
		{Name: types.ArgInput, Description: "The command line to run", Required: true},
	}
}

func (c *CommandTool) Execute(ctx context.Context, args types.ToolArgs) (string, error) {
	command, _ := args.Get(types.ArgInput)
	if strings.TrimSpace(command) == "" {
		return "", errors.New("empty command")
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	argv := append(append([]string{}, c.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, c.shell[0], argv...)
	cmd.Dir = c.workDir
	// Children of the shell may hold the output pipe open after a kill.
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := out.String()

	// A caller that gave up is not a command timeout.
	if parent.Err() != nil {
		return "", fmt.Errorf("command interrupted: %w: %s", context.Cause(parent), summarize(output))
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %s", ErrCommandTimeout, c.timeout, summarize(output))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), summarize(output))
		}
		return "", fmt.Errorf("run command: %w", err)
	}

	if strings.TrimSpace(output) == "" {
		return "command completed with no output", nil
	}
	return output, nil
}

func summarize(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return "(no output)"
	}
	return output
}
