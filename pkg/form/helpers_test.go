package form_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/rx"
)

type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func collect[T any](t *testing.T, src rx.Observable[T]) *collector[T] {
	t.Helper()
	c := &collector[T]{}
	ctx, cancel := context.WithCancel(context.Background())
	sub := rx.Subscribe(ctx, src, rx.Observer[T]{Next: func(v T) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.values = append(c.values, v)
	}})
	t.Cleanup(func() {
		sub.Dispose()
		cancel()
	})
	return c
}

func (c *collector[T]) all() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

func (c *collector[T]) last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.values) == 0 {
		return zero, false
	}
	return c.values[len(c.values)-1], true
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
