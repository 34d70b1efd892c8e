package rx

import (
	"context"
	"errors"
	"time"
)

// Debounce emits a value only after period has passed without another value
// arriving. The pending value is flushed when src completes and dropped when
// src fails.
func Debounce[T any](src Observable[T], period time.Duration) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		items := make(chan T)
		result := make(chan error, 1)
		go func() {
			result <- src.Observe(ctx, func(value T) error {
				select {
				case items <- value:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}()

		timer := time.NewTimer(period)
		timer.Stop()
		defer timer.Stop()

		var (
			pending T
			has     bool
		)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case value := <-items:
				pending, has = value, true
				timer.Reset(period)
			case <-timer.C:
				if !has {
					continue
				}
				has = false
				if err := next(pending); err != nil {
					return err
				}
			case err := <-result:
				if err != nil {
					return err
				}
				if has {
					return next(pending)
				}
				return nil
			}
		}
	})
}

// Throttle emits a value and then ignores the following values for period.
func Throttle[T any](src Observable[T], period time.Duration) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		var last time.Time
		return src.Observe(ctx, func(value T) error {
			now := time.Now()
			if !last.IsZero() && now.Sub(last) < period {
				return nil
			}
			last = now
			return next(value)
		})
	})
}

// Timeout fails with ErrTimeout when window elapses without a value, counted
// from the start of the observation and again after every value.
func Timeout[T any](src Observable[T], window time.Duration) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		timer := time.AfterFunc(window, func() { cancel(ErrTimeout) })
		defer timer.Stop()

		err := src.Observe(ctx, func(value T) error {
			if !timer.Stop() {
				return ErrTimeout
			}
			if err := next(value); err != nil {
				return err
			}
			timer.Reset(window)
			return nil
		})
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return ErrTimeout
		}
		return err
	})
}
