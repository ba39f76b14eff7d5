package main

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashutoshrp06/steploop/internal/types"
	"github.com/ashutoshrp06/steploop/internal/ui"
)

// eventRelay forwards agent events to the Bubble Tea program. The agent is
// built before the program exists, so the program is attached afterwards.
type eventRelay struct {
	mu      sync.RWMutex
	program *tea.Program
}

func (r *eventRelay) attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *eventRelay) forward(event types.AgentEvent) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(event)
	}
}

func runInteractive() error {
	relay := &eventRelay{}

	agentInstance, _, logger, err := initAgent(relay.forward, true)
	if err != nil {
		return err
	}
	defer agentInstance.Close()
	defer logger.Sync()

	model := ui.NewModel(agentInstance.ProcessQueryCmd, agentInstance.ListTools())

	p := tea.NewProgram(model, tea.WithAltScreen())
	relay.attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}
