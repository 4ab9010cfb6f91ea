package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"go.uber.org/multierr"
)

// Sessions hands out one engine per terminal. Every caller asking for the
// same terminal shares the same engine, so two requests from one register
// always see one cart.
type Sessions struct {
	store Store
	logg  *logger.Logger
	opts  EngineOptions

	mu      sync.Mutex
	engines map[string]*Engine
	closed  bool
}

// NewSessions builds the per-terminal engine registry.
func NewSessions(store Store, logg *logger.Logger, opts EngineOptions) (*Sessions, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	return &Sessions{
		store:   store,
		logg:    logg,
		opts:    opts,
		engines: make(map[string]*Engine),
	}, nil
}

// Engine returns the cart engine for the terminal, creating and hydrating it
// on first use.
func (s *Sessions) Engine(terminalID string) (*Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("cart sessions closed")
	}
	if eng, ok := s.engines[terminalID]; ok {
		return eng, nil
	}
	eng, err := NewEngine(terminalID, s.store, s.logg, s.opts)
	if err != nil {
		return nil, err
	}
	s.engines[terminalID] = eng
	return eng, nil
}

// Release flushes and drops the terminal's engine, typically at end of shift.
func (s *Sessions) Release(ctx context.Context, terminalID string) error {
	s.mu.Lock()
	eng, ok := s.engines[terminalID]
	delete(s.engines, terminalID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return eng.Close(ctx)
}

// Close flushes every live engine once and rejects further use.
func (s *Sessions) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	engines := make([]*Engine, 0, len(s.engines))
	for _, eng := range s.engines {
		engines = append(engines, eng)
	}
	s.engines = nil
	s.mu.Unlock()

	var errs error
	for _, eng := range engines {
		errs = multierr.Append(errs, eng.Close(ctx))
	}
	return errs
}
