// Package context holds the conversation transcript of one session.
package context

import (
	"errors"
	"sync"

	"github.com/ashutoshrp06/steploop/internal/types"
)

// ErrEmptyTurn is returned for a model turn without a step or a user turn without text.
var ErrEmptyTurn = errors.New("empty turn")

// Manager is an append-only transcript. Turns are copied in and out, so
// nothing outside the manager can change a turn once it is recorded.
type Manager struct {
	turns []types.Turn
	mu    sync.RWMutex
}

// NewManager creates a transcript seeded with the given turns.
func NewManager(seed ...types.Turn) *Manager {
	m := &Manager{turns: make([]types.Turn, 0, len(seed)+8)}
	for _, t := range seed {
		m.turns = append(m.turns, cloneTurn(t))
	}
	return m
}

// AddTurn appends a turn to the end of the transcript.
func (m *Manager) AddTurn(turn types.Turn) error {
	if turn.Role == types.RoleModel && turn.Step == nil {
		return ErrEmptyTurn
	}
	if turn.Role != types.RoleModel && turn.Step == nil && turn.Text == "" {
		return ErrEmptyTurn
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, cloneTurn(turn))
	return nil
}

// GetTurns returns a copy of the full ordered transcript.
func (m *Manager) GetTurns() []types.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.Turn, len(m.turns))
	for i, t := range m.turns {
		result[i] = cloneTurn(t)
	}
	return result
}

// Len returns the number of recorded turns.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Last returns the most recent turn.
func (m *Manager) Last() (types.Turn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.turns) == 0 {
		return types.Turn{}, false
	}
	return cloneTurn(m.turns[len(m.turns)-1]), true
}

func cloneTurn(t types.Turn) types.Turn {
	if t.Step == nil {
		return t
	}
	step := *t.Step
	if step.Args != nil {
		args := make(types.ToolArgs, len(step.Args))
		for k, v := range step.Args {
			args[k] = v
		}
		step.Args = args
	}
	t.Step = &step
	return t
}
