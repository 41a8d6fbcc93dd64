// Package retry provides a bounded retry helper with an optional recovery
// hook run between attempts. The simple tier uses it for its
// sweep-then-retry-once quota recovery.
package retry

import "context"

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including the
	// first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// Retryable reports whether err warrants another attempt. A nil
	// Retryable means no error is retried.
	Retryable func(error) bool

	// OnRetry runs after a retryable failure and before the next attempt.
	// attempt is the 0-indexed attempt that just failed. It is where the
	// caller frees whatever the failed attempt was short of.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// Do calls fn up to cfg.MaxAttempts times, retrying only when
// cfg.Retryable accepts the returned error. Retries are immediate; OnRetry
// runs in between.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// Last attempt: return immediately regardless of error.
		if i == attempts-1 {
			return zero, err
		}
		if cfg.Retryable == nil || !cfg.Retryable(err) {
			return zero, err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(ctx, i, err)
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
	}

	// Unreachable, but keeps the compiler happy.
	return zero, nil
}

// Run is [Do] for functions without a result.
func Run(ctx context.Context, cfg Config, fn func(context.Context) error) error {
	_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
