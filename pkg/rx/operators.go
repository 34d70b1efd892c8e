package rx

import (
	"context"
	"errors"
	"sync"
)

// Map applies fn to every value.
func Map[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return Func[U](func(ctx context.Context, next func(U) error) error {
		return src.Observe(ctx, func(value T) error {
			return next(fn(value))
		})
	})
}

// MapErr applies fn to every value and fails the stream on the first error.
func MapErr[T, U any](src Observable[T], fn func(T) (U, error)) Observable[U] {
	return Func[U](func(ctx context.Context, next func(U) error) error {
		var failure error
		err := src.Observe(ctx, func(value T) error {
			mapped, err := fn(value)
			if err != nil {
				failure = err
				return err
			}
			return next(mapped)
		})
		if failure != nil {
			return failure
		}
		return err
	})
}

// Filter forwards only the values for which keep returns true.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		return src.Observe(ctx, func(value T) error {
			if !keep(value) {
				return nil
			}
			return next(value)
		})
	})
}

// Tap runs fn for every value and forwards the value unchanged.
func Tap[T any](src Observable[T], fn func(T)) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		return src.Observe(ctx, func(value T) error {
			fn(value)
			return next(value)
		})
	})
}

// Scan emits the running accumulation of values starting from seed.
func Scan[T, A any](src Observable[T], seed A, fn func(A, T) A) Observable[A] {
	return Func[A](func(ctx context.Context, next func(A) error) error {
		acc := seed
		return src.Observe(ctx, func(value T) error {
			acc = fn(acc, value)
			return next(acc)
		})
	})
}

// Take emits the first n values and completes.
func Take[T any](src Observable[T], n int) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		if n <= 0 {
			return nil
		}
		stop := newStop("take limit reached")
		seen := 0
		err := src.Observe(ctx, func(value T) error {
			seen++
			if err := next(value); err != nil {
				return err
			}
			if seen >= n {
				return stop
			}
			return nil
		})
		if isStop(err, stop) {
			return nil
		}
		return err
	})
}

// TakeUntil mirrors src until notifier emits, then completes. A notifier
// error fails the stream.
func TakeUntil[T, N any](src Observable[T], notifier Observable[N]) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		until := newStop("notifier emitted")
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := notifier.Observe(ctx, func(N) error {
				cancel(until)
				return until
			})
			if err != nil && !isStop(err, until) && ctx.Err() == nil {
				cancel(err)
			}
		}()

		err := src.Observe(ctx, next)
		cause := context.Cause(ctx)
		cancel(nil)
		wg.Wait()

		switch {
		case isStop(cause, until):
			return nil
		case cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded):
			return cause
		}
		return err
	})
}

// StartWith emits values before the values of src.
func StartWith[T any](src Observable[T], values ...T) Observable[T] {
	prefix := append([]T(nil), values...)
	return Func[T](func(ctx context.Context, next func(T) error) error {
		for _, value := range prefix {
			if err := next(value); err != nil {
				return err
			}
		}
		return src.Observe(ctx, next)
	})
}

// DistinctUntilChanged drops values equal to the previously emitted one.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return DistinctUntilChangedFunc(src, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops values that equal reports as equal to the
// previously emitted one.
func DistinctUntilChangedFunc[T any](src Observable[T], equal func(prev, current T) bool) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		var (
			last T
			seen bool
		)
		return src.Observe(ctx, func(value T) error {
			if seen && equal(last, value) {
				return nil
			}
			last, seen = value, true
			return next(value)
		})
	})
}
