package rx

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

type notification[T any] struct {
	value    T
	terminal bool
	err      error
}

type hubObserver[T any] struct {
	next   func(T) error
	closed atomic.Bool
	result chan error
}

func (o *hubObserver[T]) finish(err error) {
	if o.closed.CompareAndSwap(false, true) {
		o.result <- err
	}
}

// hub fans notifications out to attached observers. Emission runs as a
// trampoline: the first caller drains the queue and any notification pushed
// while draining (from another goroutine or re-entrantly from an observer)
// is queued and delivered in order by that same drainer.
type hub[T any] struct {
	mu         sync.Mutex
	observers  []*hubObserver[T]
	queue      []notification[T]
	draining   bool
	stopped    bool
	terminated bool
	err        error
}

func (h *hub[T]) attach(next func(T) error) *hubObserver[T] {
	o := &hubObserver[T]{next: next, result: make(chan error, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		o.finish(h.err)
		return o
	}
	h.observers = append(h.observers, o)
	return o
}

func (h *hub[T]) detach(o *hubObserver[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = slices.DeleteFunc(h.observers, func(candidate *hubObserver[T]) bool {
		return candidate == o
	})
}

func (h *hub[T]) wait(ctx context.Context, o *hubObserver[T]) error {
	select {
	case err := <-o.result:
		return err
	case <-ctx.Done():
		h.detach(o)
		o.finish(ctx.Err())
		return ctx.Err()
	}
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

func (h *hub[T]) emit(n notification[T]) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if n.terminal {
		h.stopped = true
	}
	h.queue = append(h.queue, n)
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true
	for len(h.queue) > 0 {
		item := h.queue[0]
		h.queue = h.queue[1:]
		observers := slices.Clone(h.observers)
		if item.terminal {
			h.terminated = true
			h.err = item.err
			h.observers = nil
		}
		h.mu.Unlock()

		for _, o := range observers {
			if item.terminal {
				o.finish(item.err)
				continue
			}
			if o.closed.Load() {
				continue
			}
			if err := o.next(item.value); err != nil {
				h.detach(o)
				o.finish(err)
			}
		}

		h.mu.Lock()
	}
	h.draining = false
	h.mu.Unlock()
}
