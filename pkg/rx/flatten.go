package rx

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

var errSuperseded = errors.New("rx: inner stream superseded")

// SwitchMap maps every value of src to an inner stream and mirrors only the
// most recent one. A new outer value cancels the previous inner stream and
// no value from a superseded inner stream is delivered afterwards. The
// result completes when src and the active inner stream have completed; an
// error from src cancels the active inner stream.
func SwitchMap[T, U any](src Observable[T], project func(T) Observable[U]) Observable[U] {
	return Func[U](func(ctx context.Context, next func(U) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			mu          sync.Mutex
			generation  uint64
			cancelInner context.CancelFunc
			wg          sync.WaitGroup
			failOnce    sync.Once
			failure     error
		)
		fail := func(err error) {
			failOnce.Do(func() {
				failure = err
				cancel()
			})
		}
		emit := func(gen uint64, value U) error {
			mu.Lock()
			defer mu.Unlock()
			if gen != generation {
				return errSuperseded
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return next(value)
		}

		outerErr := src.Observe(ctx, func(value T) error {
			mu.Lock()
			generation++
			gen := generation
			if cancelInner != nil {
				cancelInner()
			}
			innerCtx, innerCancel := context.WithCancel(ctx)
			cancelInner = innerCancel
			mu.Unlock()

			inner := project(value)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer innerCancel()
				err := inner.Observe(innerCtx, func(u U) error { return emit(gen, u) })
				if err == nil || errors.Is(err, errSuperseded) || innerCtx.Err() != nil {
					return
				}
				fail(err)
			}()
			return nil
		})
		if outerErr != nil {
			cancel()
		}
		wg.Wait()

		if failure != nil {
			return failure
		}
		return outerErr
	})
}

// MergeMap maps every value of src to an inner stream and mirrors all of
// them concurrently. At most concurrency inner streams run at once; when the
// limit is reached the outer stream waits for a slot. A concurrency of zero
// or less means unbounded.
func MergeMap[T, U any](src Observable[T], project func(T) Observable[U], concurrency int) Observable[U] {
	return Func[U](func(ctx context.Context, next func(U) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		if concurrency > 0 {
			g.SetLimit(concurrency)
		}

		var mu sync.Mutex
		emit := func(value U) error {
			mu.Lock()
			defer mu.Unlock()
			if err := gctx.Err(); err != nil {
				return err
			}
			return next(value)
		}

		outerErr := src.Observe(gctx, func(value T) error {
			inner := project(value)
			g.Go(func() error {
				return inner.Observe(gctx, emit)
			})
			return gctx.Err()
		})
		if outerErr != nil {
			cancel()
		}
		innerErr := g.Wait()

		switch {
		case outerErr == nil:
			return innerErr
		case innerErr != nil && !errors.Is(innerErr, context.Canceled):
			return innerErr
		}
		return outerErr
	})
}

// ConcatMap maps every value of src to an inner stream and mirrors them one
// after another, in the order of the outer values.
func ConcatMap[T, U any](src Observable[T], project func(T) Observable[U]) Observable[U] {
	return MergeMap(src, project, 1)
}
