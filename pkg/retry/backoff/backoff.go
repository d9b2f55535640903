// Package backoff provides delay schedules for retry strategies.
package backoff

import (
	"math"
	"time"
)

// Strategy returns how long to wait before the next attempt. Attempts start
// at 1.
type Strategy func(attempts uint) time.Duration

// Constant waits the same interval before every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// Exponential multiplies baseDelay by base for every attempt after the first.
//
// delay = baseDelay * base^(attempts - 1)
// Ex. Exponential(2*time.Second, 3) = 2s, 6s, 18s, 54s, ...
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempts uint) time.Duration {
		exponent := 0.0
		if attempts > 1 {
			exponent = float64(attempts - 1)
		}
		return saturate(float64(baseDelay) * math.Pow(base, exponent))
	}
}

// BinaryExponential doubles the delay after every attempt.
//
// Ex. BinaryExponential(2*time.Second) = 2s, 4s, 8s, 16s, ...
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}

// saturate clamps delays that overflow a time.Duration to the largest one.
func saturate(delay float64) time.Duration {
	if math.IsNaN(delay) || delay < 0 {
		return 0
	}
	if delay >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(delay)
}
