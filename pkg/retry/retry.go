// Package retry runs actions repeatedly under a set of composable strategies.
package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry runs action until it succeeds or a strategy declines another attempt.
// It returns the number of attempts made along with the last error.
//
// Strategies are evaluated in order and evaluation stops at the first one that
// declines, so strategies that sleep belong at the end.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		if !shouldRetry(strategies, attempts, err) {
			return attempts, err
		}
	}
}

// Loop runs action forever, until a strategy declines to retry a failure.
// A successful run resets the attempt counter, so backoff restarts from the
// first step after every success.
func Loop(action Action, strategies ...Strategy) error {
	var failures uint
	for {
		err := action()
		if err == nil {
			failures = 0
			continue
		}

		failures++
		if !shouldRetry(strategies, failures, err) {
			return err
		}
	}
}

func shouldRetry(strategies []Strategy, attempts uint, err error) bool {
	for _, s := range strategies {
		if !s(attempts, err) {
			return false
		}
	}
	return true
}
