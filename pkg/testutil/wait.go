package testutil

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

// WaitFor waits for a condition to be met before the specified timeout
func WaitFor(timeout, interval time.Duration, condition func() bool) error {
	if timeout < interval {
		return errors.New("timeout must be greater than interval")
	}
	start := time.Now()
	for {
		if condition() {
			return nil
		}
		if time.Since(start) >= timeout {
			return errors.Errorf("condition not met within %v", timeout)
		}

		time.Sleep(interval)
	}
}

// Receive returns the next value sent on ch. The test fails if ch is closed,
// or nothing arrives before the timeout.
func Receive[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("nothing received within %v", timeout)
	}

	var zero T
	return zero
}

// RequireClosed drains ch until it is closed. The test fails if ch is still
// open after the timeout.
func RequireClosed[T any](t testing.TB, ch <-chan T, timeout time.Duration) {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed within %v", timeout)
		}
	}
}
