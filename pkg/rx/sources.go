package rx

import (
	"context"
	"time"
)

// Of emits the given values in order and completes.
func Of[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// FromSlice emits the items of values in order and completes.
func FromSlice[T any](values []T) Observable[T] {
	items := append([]T(nil), values...)
	return Func[T](func(ctx context.Context, next func(T) error) error {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := next(item); err != nil {
				return err
			}
		}
		return nil
	})
}

// FromChannel emits values received from ch and completes when ch is closed.
// The channel is shared by every observation.
func FromChannel[T any](ch <-chan T) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case value, ok := <-ch:
				if !ok {
					return nil
				}
				if err := next(value); err != nil {
					return err
				}
			}
		}
	})
}

// FromFunc calls fn once per observation and emits its result. It is the
// stream form of a single asynchronous call such as an HTTP request.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return next(value)
	})
}

// Defer builds a fresh Observable for every observation.
func Defer[T any](factory func() Observable[T]) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		return factory().Observe(ctx, next)
	})
}

// Empty completes without emitting.
func Empty[T any]() Observable[T] {
	return Func[T](func(ctx context.Context, _ func(T) error) error {
		return ctx.Err()
	})
}

// Never emits nothing and only ends when the context is cancelled.
func Never[T any]() Observable[T] {
	return Func[T](func(ctx context.Context, _ func(T) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
}

// Throw fails immediately with err.
func Throw[T any](err error) Observable[T] {
	return Func[T](func(context.Context, func(T) error) error {
		return err
	})
}

// Interval emits 0, 1, 2, ... every period until cancelled.
func Interval(period time.Duration) Observable[int] {
	return Func[int](func(ctx context.Context, next func(int) error) error {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for tick := 0; ; tick++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := next(tick); err != nil {
					return err
				}
			}
		}
	})
}

// Timer emits 0 once after delay and completes.
func Timer(delay time.Duration) Observable[int] {
	return Func[int](func(ctx context.Context, next func(int) error) error {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return next(0)
		}
	})
}
