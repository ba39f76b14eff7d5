package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// Halt reasons of a failed session.
var (
	ErrIterationBudgetExceeded = errors.New("iteration budget exceeded")
	ErrTooManyFailures         = errors.New("too many consecutive model failures")
	ErrSessionTimeout          = errors.New("session time budget exceeded")
	ErrSessionAborted          = errors.New("session aborted")
)

// errSessionEnded marks attempts cut short by the session context; it is
// never retried.
var errSessionEnded = errors.New("session context done")

// run drives sess until it succeeds or halts. Every iteration appends
// exactly one model step; an action step is followed by its observe step
// before the model is called again.
func (a *Agent) run(ctx context.Context, sess *Session) {
	if budget := a.cfg.SessionTimeout(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, budget, ErrSessionTimeout)
		defer cancel()
	}

	for sess.Running() {
		if sess.iterations >= a.cfg.Agent.MaxIterations {
			a.halt(sess, fmt.Errorf("%w: %d steps", ErrIterationBudgetExceeded, a.cfg.Agent.MaxIterations))
			return
		}
		if reason := haltReason(ctx); reason != nil {
			a.halt(sess, reason)
			return
		}

		step, err := a.nextStep(ctx, sess)
		if err != nil {
			if reason := haltReason(ctx); reason != nil {
				a.halt(sess, reason)
				return
			}
			a.halt(sess, fmt.Errorf("%w: %w", ErrTooManyFailures, err))
			return
		}

		sess.iterations++
		a.record(sess, types.ModelTurn(step), nil)

		switch step.Kind {
		case types.StepOutput:
			sess.lifecycle.succeed(step.Content)
			a.logger.Info("Session succeeded",
				zap.String("session_id", sess.ID),
				zap.Int("iterations", sess.iterations),
				zap.Int("failed_attempts", sess.failures))

		case types.StepAction:
			a.observer(types.AgentEvent{
				SessionID: sess.ID,
				State:     types.StateToolExecuting,
				Iteration: sess.iterations,
			})
			observe, result := a.executor.Observe(ctx, step)
			a.record(sess, types.ModelTurn(observe), &result)

		default:
			// think, and observe steps the model wrote itself, only extend the transcript
		}
	}
}

// nextStep asks the model for one step, retrying provider and decode
// failures up to the configured number of consecutive attempts. Failed
// attempts never touch the transcript.
func (a *Agent) nextStep(ctx context.Context, sess *Session) (types.Step, error) {
	attempt := 0
	return a.retrier.Do(ctx, func(ctx context.Context) (types.Step, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return types.Step{}, fmt.Errorf("%w: %w", errSessionEnded, err)
		}

		a.observer(types.AgentEvent{
			SessionID: sess.ID,
			State:     types.StateThinking,
			Iteration: sess.iterations + 1,
		})

		raw, err := a.llmClient.Send(ctx, sess.Transcript())
		if err != nil {
			if ctx.Err() != nil {
				return types.Step{}, fmt.Errorf("%w: %w", errSessionEnded, err)
			}
			a.attemptFailed(sess, attempt, err, "")
			return types.Step{}, err
		}

		step, err := a.outputValidator.Decode(raw)
		if err != nil {
			a.attemptFailed(sess, attempt, err, raw)
			return types.Step{}, err
		}
		return step, nil
	})
}

func (a *Agent) attemptFailed(sess *Session, attempt int, err error, raw string) {
	sess.failures++

	fields := []zap.Field{
		zap.String("session_id", sess.ID),
		zap.Int("iteration", sess.iterations+1),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", a.cfg.Agent.MaxConsecutiveFailures),
		zap.Error(err),
	}
	if raw != "" {
		fields = append(fields, zap.String("raw_response", truncate(raw, 200)))
		a.logger.Warn("Model reply rejected", fields...)
	} else {
		a.logger.Warn("Model call failed", fields...)
	}

	a.observer(types.AgentEvent{
		SessionID: sess.ID,
		State:     types.StateThinking,
		Iteration: sess.iterations + 1,
		Error:     err,
	})
}

// record appends turn to the transcript and reports it.
func (a *Agent) record(sess *Session, turn types.Turn, result *types.ExecutionResult) {
	if err := sess.transcript.AddTurn(turn); err != nil {
		a.logger.Error("Failed to record turn", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("session_id", sess.ID),
		zap.Int("iteration", sess.iterations),
		zap.String("step", string(turn.Step.Kind)),
	}
	if turn.Step.Kind == types.StepAction {
		fields = append(fields, zap.String("tool", turn.Step.Tool))
	}
	a.logger.Debug("Step recorded", fields...)

	state := types.StateThinking
	if turn.Step.Kind == types.StepOutput {
		state = types.StateResponding
	}
	a.observer(types.AgentEvent{
		SessionID:  sess.ID,
		State:      state,
		Iteration:  sess.iterations,
		Turn:       &turn,
		ToolResult: result,
	})
}

func (a *Agent) halt(sess *Session, reason error) {
	sess.lifecycle.fail(reason)
	a.logger.Warn("Session halted",
		zap.String("session_id", sess.ID),
		zap.Int("iterations", sess.iterations),
		zap.Int("failed_attempts", sess.failures),
		zap.Error(reason))
}

// haltReason maps a finished context to the session's halt reason.
func haltReason(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrSessionTimeout):
		return cause
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrSessionTimeout, cause)
	default:
		return fmt.Errorf("%w: %w", ErrSessionAborted, cause)
	}
}
