package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.RunTracker = (*RunTracker)(nil)

// RunTracker is a mock implementation of newsgrab.RunTracker.
type RunTracker struct {
	BeginFn     func(source string) (newsgrab.Run, error)
	SummarizeFn func(summary newsgrab.RunSummary)
}

func (t *RunTracker) Begin(source string) (newsgrab.Run, error) {
	return t.BeginFn(source)
}

func (t *RunTracker) Summarize(summary newsgrab.RunSummary) {
	t.SummarizeFn(summary)
}

var _ newsgrab.Run = (*Run)(nil)

// Run records every published state and log line.
type Run struct {
	mu       sync.Mutex
	States   []newsgrab.RunState
	Messages []string
}

func (r *Run) Publish(state newsgrab.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, state)
}

func (r *Run) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, message)
}

// Last returns the most recently published state.
func (r *Run) Last() newsgrab.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.States) == 0 {
		return newsgrab.RunState{}
	}
	return r.States[len(r.States)-1]
}

var _ newsgrab.RunService = (*RunService)(nil)

// RunService is a mock implementation of newsgrab.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *newsgrab.RunRecord) error
	FindRunsFn  func(ctx context.Context, filter newsgrab.RunFilter) ([]*newsgrab.RunRecord, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *newsgrab.RunRecord) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRuns(ctx context.Context, filter newsgrab.RunFilter) ([]*newsgrab.RunRecord, error) {
	return s.FindRunsFn(ctx, filter)
}
