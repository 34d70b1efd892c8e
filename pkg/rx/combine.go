package rx

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

var errSourceEmpty = errors.New("rx: source completed without a value")

// Merge interleaves the values of all sources and completes when every
// source has completed. The first error cancels the remaining sources.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex
		emit := func(value T) error {
			mu.Lock()
			defer mu.Unlock()
			if err := gctx.Err(); err != nil {
				return err
			}
			return next(value)
		}
		for _, src := range sources {
			g.Go(func() error {
				return src.Observe(gctx, emit)
			})
		}
		return g.Wait()
	})
}

// CombineLatest emits a snapshot of the latest value of every source each
// time any source emits, once all of them have emitted at least once. It
// completes when all sources complete, or straight away when a source
// completes without ever emitting.
func CombineLatest[T any](sources ...Observable[T]) Observable[[]T] {
	return Func[[]T](func(ctx context.Context, next func([]T) error) error {
		if len(sources) == 0 {
			return nil
		}
		g, gctx := errgroup.WithContext(ctx)

		var (
			mu      sync.Mutex
			latest  = make([]T, len(sources))
			has     = make([]bool, len(sources))
			pending = len(sources)
		)
		for idx, src := range sources {
			g.Go(func() error {
				emitted := false
				err := src.Observe(gctx, func(value T) error {
					mu.Lock()
					defer mu.Unlock()
					if err := gctx.Err(); err != nil {
						return err
					}
					emitted = true
					if !has[idx] {
						has[idx] = true
						pending--
					}
					latest[idx] = value
					if pending > 0 {
						return nil
					}
					return next(slices.Clone(latest))
				})
				if err == nil && !emitted {
					return errSourceEmpty
				}
				return err
			})
		}
		err := g.Wait()
		if errors.Is(err, errSourceEmpty) {
			return nil
		}
		return err
	})
}

// CombineLatest2 combines two differently typed sources with fn.
func CombineLatest2[A, B, R any](a Observable[A], b Observable[B], fn func(A, B) R) Observable[R] {
	combined := CombineLatest(
		Map(a, func(v A) any { return v }),
		Map(b, func(v B) any { return v }),
	)
	return Map(combined, func(values []any) R {
		return fn(values[0].(A), values[1].(B))
	})
}

// ForkJoin waits for every source to complete and emits their last values
// once. It completes without emitting when any source completes empty.
func ForkJoin[T any](sources ...Observable[T]) Observable[[]T] {
	return Func[[]T](func(ctx context.Context, next func([]T) error) error {
		if len(sources) == 0 {
			return nil
		}
		g, gctx := errgroup.WithContext(ctx)
		last := make([]T, len(sources))
		for idx, src := range sources {
			g.Go(func() error {
				emitted := false
				err := src.Observe(gctx, func(value T) error {
					last[idx] = value
					emitted = true
					return nil
				})
				if err == nil && !emitted {
					return errSourceEmpty
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, errSourceEmpty) {
				return nil
			}
			return err
		}
		return next(last)
	})
}
