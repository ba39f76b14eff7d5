// Package executor dispatches a single action step to the tool registry
// and turns the outcome into an observation.
package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/steploop/internal/tools"
	"github.com/ashutoshrp06/steploop/internal/types"
)

// Invoker is the part of the tool registry the executor needs.
type Invoker interface {
	Invoke(ctx context.Context, name string, args types.ToolArgs) (string, error)
}

type Executor struct {
	invoker Invoker
	logger  *zap.Logger
}

func NewExecutor(invoker Invoker, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		invoker: invoker,
		logger:  logger,
	}
}

// Execute runs the tool named by an action step. Tool failures are reported
// in the result, never returned, so every action yields an observation.
func (e *Executor) Execute(ctx context.Context, action types.Step) types.ExecutionResult {
	start := time.Now()
	result := types.ExecutionResult{Tool: action.Tool, Args: action.Args}

	if action.Kind != types.StepAction {
		result.Error = "not an action step: " + string(action.Kind)
		return result
	}

	e.logger.Info("Executing tool",
		zap.String("tool", action.Tool),
		zap.Any("args", redact(action.Args)))

	out, err := e.invoker.Invoke(ctx, action.Tool, action.Args)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		e.logger.Warn("Tool failed",
			zap.String("tool", action.Tool),
			zap.String("kind", errorKind(err)),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
		return result
	}

	result.Success = true
	result.Output = out
	e.logger.Info("Tool finished",
		zap.String("tool", action.Tool),
		zap.Duration("duration", result.Duration),
		zap.Int("output_bytes", len(out)))
	return result
}

// Observe executes the action and returns the observe step that must follow it.
func (e *Executor) Observe(ctx context.Context, action types.Step) (types.Step, types.ExecutionResult) {
	result := e.Execute(ctx, action)
	return types.Observe(result.Observation()), result
}

func errorKind(err error) string {
	var unknown *tools.UnknownToolError
	var ioErr *tools.IOError
	var execErr *tools.ExecutionError
	switch {
	case errors.As(err, &unknown):
		return "unknown_tool"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &execErr):
		return "execution"
	}
	return "other"
}

// redact keeps file payloads out of the logs.
func redact(args types.ToolArgs) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		if r := []rune(v); k == types.ArgData && len(r) > 64 {
			v = string(r[:64]) + "..."
		}
		out[k] = v
	}
	return out
}
