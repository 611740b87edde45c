package shadow

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Session.Render when a newer call replaced the pass.
var ErrSuperseded = errors.New("synthesis pass superseded by a newer request")

// Session serializes interactive re-renders. Every Render cancels the pass
// still in flight, and only the newest pass may commit its result, so Latest
// always reflects the most recent parameters that finished rendering.
type Session struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     *Result

	synth func(context.Context, Inputs, Params) (*Result, error)
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{synth: Synthesize}
}

// Render runs one pass. If another Render starts before this one finishes,
// this call returns ErrSuperseded and its result is discarded.
func (s *Session) Render(ctx context.Context, in Inputs, p Params) (*Result, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	passCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer cancel()
	res, err := s.synth(passCtx, in, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil, ErrSuperseded
	}
	s.cancel = nil

	if err != nil {
		return nil, err
	}
	if res != nil {
		s.latest = res
	}
	return res, nil
}

// Latest returns the last committed result, or nil.
func (s *Session) Latest() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Generation counts the passes started so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
