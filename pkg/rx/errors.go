package rx

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
)

// CatchError mirrors src and, when src fails, continues with the stream
// returned by handler. Errors returned by downstream observers and context
// cancellation are not intercepted.
func CatchError[T any](src Observable[T], handler func(error) Observable[T]) Observable[T] {
	return Func[T](func(ctx context.Context, next func(T) error) error {
		g := &guard[T]{next: next}
		err := src.Observe(ctx, g.emit)
		if err == nil || ctx.Err() != nil || g.downstream(err) {
			return err
		}
		logging.FromContext(ctx).Debug("rx: caught source error", zap.Error(err))
		return handler(err).Observe(ctx, next)
	})
}

// RetryOption configures Retry.
type RetryOption func(*retryConfig)

type retryConfig struct {
	delay time.Duration
}

// RetryDelay waits d between attempts.
func RetryDelay(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		if d > 0 {
			cfg.delay = d
		}
	}
}

// Retry resubscribes to src up to count times when it fails, so an
// always-failing source is observed count+1 times before its last error is
// returned. Values emitted by failed attempts are still delivered.
func Retry[T any](src Observable[T], count int, opts ...RetryOption) Observable[T] {
	cfg := retryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if count < 0 {
		count = 0
	}
	return Func[T](func(ctx context.Context, next func(T) error) error {
		log := logging.FromContext(ctx)
		g := &guard[T]{next: next}
		return retry.Do(
			func() error {
				return src.Observe(ctx, g.emit)
			},
			retry.Context(ctx),
			retry.Attempts(uint(count)+1),
			retry.Delay(cfg.delay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return ctx.Err() == nil && !g.downstream(err)
			}),
			retry.OnRetry(func(attempt uint, err error) {
				log.Debug("rx: source failed", zap.Uint("attempt", attempt+1), zap.Error(err))
			}),
		)
	})
}
