// Package retry runs operations with capped exponential backoff and decides
// which failures are worth another attempt.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how many times and how fast an operation is retried.
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy is used by the storage and cache layers.
var DefaultPolicy = Policy{
	Attempts:       3,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     time.Second,
}

// Do calls fn until it succeeds, fails with an error retryable rejects, the
// attempts are exhausted or ctx is done. A nil retryable means IsTransient.
// notify, when set, sees every failure that is about to be retried. Do
// returns the number of calls made.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, notify func(err error, attempt int), fn func() error) (int, error) {
	if retryable == nil {
		retryable = IsTransient
	}

	calls := 0
	op := func() error {
		calls++
		err := fn()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, _ time.Duration) { notify(err, calls) }
	}
	err := backoff.RetryNotify(op, backoff.WithContext(p.backOff(), ctx), onRetry)
	return calls, err
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// IsTransient reports whether err is a deadline, a timeout or a temporary
// network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}
