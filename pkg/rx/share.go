package rx

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
)

type shared[T any] struct {
	src Observable[T]

	mu     sync.Mutex
	hub    *hub[T]
	refs   int
	cancel context.CancelFunc
}

// Share returns an Observable that runs src once for all concurrent
// observers. The source starts with the first observer and is torn down when
// the last one detaches; a later observer starts a fresh run.
func Share[T any](src Observable[T]) Observable[T] {
	return &shared[T]{src: src}
}

func (s *shared[T]) Observe(ctx context.Context, next func(T) error) error {
	return s.attach(ctx, next)(ctx)
}

func (s *shared[T]) attach(ctx context.Context, next func(T) error) func(context.Context) error {
	s.mu.Lock()
	var (
		start bool
		run   context.Context
	)
	if s.hub == nil {
		var cancel context.CancelFunc
		run, cancel = context.WithCancel(context.WithoutCancel(ctx))
		s.hub = &hub[T]{}
		s.cancel = cancel
		start = true
	}
	h := s.hub
	o := h.attach(next)
	s.refs++
	s.mu.Unlock()

	if start {
		go s.run(run, h)
	}

	return func(ctx context.Context) error {
		err := h.wait(ctx, o)
		s.release(h)
		return err
	}
}

func (s *shared[T]) run(ctx context.Context, h *hub[T]) {
	logging.FromContext(ctx).Debug("rx: shared source started")
	err := s.src.Observe(ctx, func(value T) error {
		h.emit(notification[T]{value: value})
		return ctx.Err()
	})
	if ctx.Err() != nil {
		logging.FromContext(ctx).Debug("rx: shared source torn down")
		return
	}

	s.mu.Lock()
	if s.hub == h {
		s.hub = nil
		s.refs = 0
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	logging.FromContext(ctx).Debug("rx: shared source finished", zap.Error(err))
	h.emit(notification[T]{terminal: true, err: err})
}

func (s *shared[T]) release(h *hub[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hub != h {
		return
	}
	s.refs--
	if s.refs <= 0 {
		s.cancel()
		s.hub = nil
		s.cancel = nil
		s.refs = 0
	}
}
