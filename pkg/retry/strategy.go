package retry

import (
	"context"
	"errors"
	"time"

	"github.com/code-payments/eventflow/pkg/retry/backoff"
)

// Strategy decides whether a failed action is attempted again. attempts is
// the number of attempts made so far. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit stops retrying once maxAttempts attempts were made. The first attempt
// counts, so Limit(1) never retries.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriable, including
// when wrapped.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return matchesAny(err, retriable)
	}
}

// NonRetriableErrors retries everything except errors matching one of
// nonRetriable, including when wrapped.
func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return !matchesAny(err, nonRetriable)
	}
}

// RetriableWhen retries the errors isRetriable accepts. It suits SDKs that
// classify errors through predicates instead of sentinel values.
func RetriableWhen(isRetriable func(err error) bool) Strategy {
	return func(_ uint, err error) bool {
		return isRetriable(err)
	}
}

// UntilDone stops retrying once ctx is done.
func UntilDone(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// Backoff sleeps for the delay the strategy schedules, capped at maxBackoff,
// and always allows the retry.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		sleeperImpl.Sleep(capped(strategy(attempts), maxBackoff))
		return true
	}
}

// BackoffWithContext behaves like Backoff, except the sleep ends early and the
// retry is declined once ctx is done.
func BackoffWithContext(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		timer := time.NewTimer(capped(strategy(attempts), maxBackoff))
		defer timer.Stop()

		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func capped(delay, limit time.Duration) time.Duration {
	if delay > limit {
		return limit
	}
	return delay
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
