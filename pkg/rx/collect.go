package rx

import "context"

// ToSlice observes src to completion and returns every value.
func ToSlice[T any](ctx context.Context, src Observable[T]) ([]T, error) {
	var out []T
	err := src.Observe(ctx, func(value T) error {
		out = append(out, value)
		return nil
	})
	return out, err
}

// First returns the first value of src, or ErrEmpty when src completes
// without emitting.
func First[T any](ctx context.Context, src Observable[T]) (T, error) {
	var (
		out   T
		found bool
	)
	stop := newStop("first value received")
	err := src.Observe(ctx, func(value T) error {
		out, found = value, true
		return stop
	})
	if err != nil && !isStop(err, stop) {
		return out, err
	}
	if !found {
		return out, ErrEmpty
	}
	return out, nil
}
