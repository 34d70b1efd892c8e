package rx

import "context"

// Subject is a hot Observable that multicasts the values pushed through Next
// to every attached observer, in attachment order. Late observers only see
// values pushed after they attach; observers attaching after Error or
// Complete receive the terminal notification immediately.
//
// Delivery is synchronous for a single caller. A Next issued from inside an
// observer callback, or concurrently from another goroutine, is queued and
// delivered after the notification in flight.
type Subject[T any] struct {
	h hub[T]
}

// NewSubject constructs an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Next pushes a value to all observers.
func (s *Subject[T]) Next(value T) {
	s.h.emit(notification[T]{value: value})
}

// Error terminates the subject with err.
func (s *Subject[T]) Error(err error) {
	s.h.emit(notification[T]{terminal: true, err: err})
}

// Complete terminates the subject successfully.
func (s *Subject[T]) Complete() {
	s.h.emit(notification[T]{terminal: true})
}

// ObserverCount returns the number of attached observers.
func (s *Subject[T]) ObserverCount() int {
	return s.h.count()
}

// Observe attaches next and blocks until the subject terminates, next
// returns an error, or ctx is cancelled.
func (s *Subject[T]) Observe(ctx context.Context, next func(T) error) error {
	return s.attach(ctx, next)(ctx)
}

func (s *Subject[T]) attach(_ context.Context, next func(T) error) func(context.Context) error {
	o := s.h.attach(next)
	return func(ctx context.Context) error {
		return s.h.wait(ctx, o)
	}
}
