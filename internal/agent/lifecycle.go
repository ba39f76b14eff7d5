package agent

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const (
	stateRunning   statekit.StateID = statekit.StateID(StatusRunning)
	stateSucceeded statekit.StateID = statekit.StateID(StatusSucceeded)
	stateFailed    statekit.StateID = statekit.StateID(StatusFailed)

	eventOutput statekit.EventType = "OUTPUT"
	eventFail   statekit.EventType = "FAIL"
)

// lifecycleContext is the statechart context of one session.
type lifecycleContext struct {
	Output string
	Reason error
}

// haltPayload travels with the OUTPUT and FAIL events.
type haltPayload struct {
	Output string
	Reason error
}

// newLifecycleMachine builds the running → succeeded | failed statechart.
// Both targets are final; nothing leaves them.
func newLifecycleMachine() (*statekit.MachineConfig[*lifecycleContext], error) {
	return statekit.NewMachine[*lifecycleContext]("session").
		WithInitial(stateRunning).
		WithContext(&lifecycleContext{}).
		WithAction("recordHalt", recordHalt).
		State(stateRunning).
		On(eventOutput).Target(stateSucceeded).Do("recordHalt").
		On(eventFail).Target(stateFailed).Do("recordHalt").
		Done().
		State(stateSucceeded).
		Final().
		Done().
		State(stateFailed).
		Final().
		Done().
		Build()
}

func recordHalt(ctx **lifecycleContext, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if p, ok := event.Payload.(haltPayload); ok {
		(*ctx).Output = p.Output
		(*ctx).Reason = p.Reason
	}
}

// lifecycle drives one session's statechart.
type lifecycle struct {
	interp *statekit.Interpreter[*lifecycleContext]
	ctx    *lifecycleContext
}

func newLifecycle() (*lifecycle, error) {
	machine, err := newLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build session lifecycle: %w", err)
	}

	lc := &lifecycle{
		interp: statekit.NewInterpreter(machine),
		ctx:    &lifecycleContext{},
	}
	lc.interp.Start()
	lc.interp.UpdateContext(func(c **lifecycleContext) {
		*c = lc.ctx
	})
	return lc, nil
}

func (l *lifecycle) succeed(output string) {
	if l.done() {
		return
	}
	l.interp.Send(statekit.Event{Type: eventOutput, Payload: haltPayload{Output: output}})
}

func (l *lifecycle) fail(reason error) {
	if l.done() {
		return
	}
	l.interp.Send(statekit.Event{Type: eventFail, Payload: haltPayload{Reason: reason}})
}

func (l *lifecycle) done() bool {
	return l.interp.Done()
}

func (l *lifecycle) status() Status {
	return Status(l.interp.State().Value)
}
