package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	ctxmgr "github.com/ashutoshrp06/steploop/internal/context"
	"github.com/ashutoshrp06/steploop/internal/types"
)

// Session is the state of one user query: its transcript, lifecycle and
// counters. A session is owned by the goroutine running it.
type Session struct {
	ID        string
	Query     string
	StartedAt time.Time

	transcript *ctxmgr.Manager
	lifecycle  *lifecycle
	iterations int
	failures   int
}

type sessionIDKey struct{}

// WithSessionID returns a context under which ProcessQuery runs its session
// with id instead of a generated one. Callers use it to match observer events
// to a session they started.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

func newSession(id, query, seed string) (*Session, error) {
	lc, err := newLifecycle()
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:         id,
		Query:      query,
		StartedAt:  time.Now(),
		transcript: ctxmgr.NewManager(types.UserTurn(seed)),
		lifecycle:  lc,
	}, nil
}

// Running reports whether the session may still take steps.
func (s *Session) Running() bool { return !s.lifecycle.done() }

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.lifecycle.status() }

// Transcript returns a copy of the ordered turns.
func (s *Session) Transcript() []types.Turn { return s.transcript.GetTurns() }

// Output returns the final answer of a succeeded session.
func (s *Session) Output() string { return s.lifecycle.ctx.Output }

// Err returns the halt reason of a failed session.
func (s *Session) Err() error { return s.lifecycle.ctx.Reason }

// Iterations returns the number of model steps taken.
func (s *Session) Iterations() int { return s.iterations }

// Result summarizes a finished session.
type Result struct {
	SessionID  string        `yaml:"session_id"`
	Query      string        `yaml:"query"`
	Status     Status        `yaml:"status"`
	Output     string        `yaml:"output,omitempty"`
	Error      string        `yaml:"error,omitempty"`
	Iterations int           `yaml:"iterations"`
	Failures   int           `yaml:"failed_attempts"`
	Duration   time.Duration `yaml:"duration"`
	Turns      []types.Turn  `yaml:"turns"`
}

func (s *Session) result() *Result {
	r := &Result{
		SessionID:  s.ID,
		Query:      s.Query,
		Status:     s.Status(),
		Output:     s.Output(),
		Iterations: s.iterations,
		Failures:   s.failures,
		Duration:   time.Since(s.StartedAt),
		Turns:      s.Transcript(),
	}
	if err := s.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}
