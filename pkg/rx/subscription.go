package rx

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
)

// Observer receives the notifications of a subscription. Nil callbacks are
// skipped.
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	logger *zap.Logger
}

// WithLogger attaches a logger to the subscription context. Operators in the
// pipeline pick it up for lifecycle and retry logging.
func WithLogger(logger *zap.Logger) SubscribeOption {
	return func(cfg *subscribeConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id       uuid.UUID
	cancel   context.CancelFunc
	done     chan struct{}
	disposed atomic.Bool
	err      error
}

// Subscribe starts observing src in the background and forwards
// notifications to observer. Hot sources register the observer before
// Subscribe returns.
func Subscribe[T any](ctx context.Context, src Observable[T], observer Observer[T], opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger != nil {
		ctx = logging.WithLogger(ctx, cfg.logger)
	}
	ctx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	log := logging.FromContext(ctx).With(zap.String("subscription", sub.id.String()))

	next := func(value T) error {
		if sub.disposed.Load() {
			return context.Canceled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if observer.Next != nil {
			observer.Next(value)
		}
		return nil
	}

	var wait func(context.Context) error
	if hot, ok := src.(attacher[T]); ok {
		wait = hot.attach(ctx, next)
	} else {
		wait = func(ctx context.Context) error { return src.Observe(ctx, next) }
	}

	log.Debug("rx: subscribed")
	go func() {
		defer close(sub.done)
		defer cancel()

		err := wait(ctx)
		sub.err = err
		if ctx.Err() != nil || sub.disposed.Load() {
			log.Debug("rx: disposed")
			return
		}
		if err != nil {
			log.Debug("rx: errored", zap.Error(err))
			if observer.Error != nil {
				observer.Error(err)
			}
			return
		}
		log.Debug("rx: completed")
		if observer.Complete != nil {
			observer.Complete()
		}
	}()

	return sub
}

// ID returns the unique identifier assigned to the subscription.
func (s *Subscription) ID() string {
	if s == nil {
		return ""
	}
	return s.id.String()
}

// Dispose cancels the subscription. No further notifications reach the
// observer once Dispose returns, apart from a Next already in progress.
// Dispose does not wait for the producer; use Done for that. Calling it from
// inside an observer callback is safe.
func (s *Subscription) Dispose() {
	if s == nil {
		return
	}
	s.disposed.Store(true)
	s.cancel()
}

// Done is closed once the producer has returned.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error once Done is closed: nil on completion, the
// source error on failure, or a context error when disposed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Disposed reports whether Dispose has been called.
func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}

// Wait blocks until the producer returns or ctx is done.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		if errors.Is(s.err, context.Canceled) && s.disposed.Load() {
			return nil
		}
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
