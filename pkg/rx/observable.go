package rx

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned by streams wrapped with Timeout when no value
	// arrives within the configured window.
	ErrTimeout = errors.New("rx: timeout")
	// ErrEmpty is returned by First when the stream completes without a value.
	ErrEmpty = errors.New("rx: no elements in sequence")
)

// Observable is a lazy stream of values of type T.
type Observable[T any] interface {
	Observe(ctx context.Context, next func(T) error) error
}

// Func adapts a function into an Observable.
type Func[T any] func(ctx context.Context, next func(T) error) error

// Observe delegates to the underlying function.
func (fn Func[T]) Observe(ctx context.Context, next func(T) error) error {
	return fn(ctx, next)
}

// attacher is implemented by hot sources. attach registers next before it
// returns, and the returned function blocks until the observation ends.
// Subscribe relies on it so values pushed right after Subscribe returns are
// not lost.
type attacher[T any] interface {
	attach(ctx context.Context, next func(T) error) func(ctx context.Context) error
}

// guard remembers the last error returned by downstream so operators that
// intercept failures (Retry, CatchError) can tell a source failure from a
// downstream stop.
type guard[T any] struct {
	next func(T) error
	err  error
}

func (g *guard[T]) emit(value T) error {
	if err := g.next(value); err != nil {
		g.err = err
		return err
	}
	return nil
}

func (g *guard[T]) downstream(err error) bool {
	return g.err != nil && errors.Is(err, g.err)
}

// stopSignal is returned by an operator's own next wrapper to end the
// upstream observation without reporting an error.
type stopSignal struct{ reason string }

func (s *stopSignal) Error() string { return "rx: " + s.reason }

func newStop(reason string) *stopSignal { return &stopSignal{reason: reason} }

// isStop reports whether err is exactly the given stop signal.
func isStop(err error, stop *stopSignal) bool {
	var target *stopSignal
	return errors.As(err, &target) && target == stop
}
