package crawler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// RetryPolicy controls how transient fetch failures are retried
type RetryPolicy struct {
	MaxAttempts  int // 0 retries until success
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialDelay > 0 {
		b.InitialInterval = p.InitialDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	return b
}

// retry runs op until it succeeds, fails permanently, runs out of attempts
// or ctx is done. Wrap errors with backoff.Permanent to stop retrying.
func retry[T any](ctx context.Context, policy RetryPolicy, what string, op func() (T, error)) (T, error) {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logrus.Warnf("%s failed: %v (retrying in %v)", what, err, wait.Round(time.Millisecond))
		}),
	}
	if policy.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(policy.MaxAttempts)))
	}

	return backoff.Retry[T](ctx, func() (T, error) {
		v, err := op()
		if err != nil && ctx.Err() != nil {
			return v, backoff.Permanent(ctx.Err())
		}
		return v, err
	}, opts...)
}
