package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/code-payments/eventflow/pkg/retry/backoff"
)

func TestLimit(t *testing.T) {
	strategy := Limit(2)

	// One iteration has been executed. Try again.
	assert.True(t, strategy(1, errors.New("test")))
	// Two iterations have been executed. Do not try again.
	assert.False(t, strategy(2, errors.New("test")))

	counter, err := Retry(func() error {
		return errors.New("test")
	}, Limit(2))

	assert.EqualError(t, err, "test")
	assert.Equal(t, uint(2), counter)
}

func TestRetriableErrors(t *testing.T) {
	retriableErrors := []error{
		errors.New("retriableA"),
		errors.New("retriableB"),
		errors.New("retriableC"),
	}

	strategy := RetriableErrors(retriableErrors...)
	for _, err := range retriableErrors {
		assert.True(t, strategy(1, err))
		// Ensure wrapped errors are detected.
		assert.True(t, strategy(1, errors.Wrap(err, "wrapper")))
	}
	assert.False(t, strategy(2, errors.New("unexpected")))
}

func TestNonRetriableErrors(t *testing.T) {
	nonRetriableErrors := []error{
		errors.New("nonRetriableA"),
		errors.New("nonRetriableB"),
		errors.New("nonRetriableC"),
	}

	strategy := NonRetriableErrors(nonRetriableErrors...)
	for _, err := range nonRetriableErrors {
		assert.False(t, strategy(1, err))
		// Ensure wrapped errors are detected.
		assert.False(t, strategy(1, errors.Wrap(err, "wrapper")))
	}
	assert.True(t, strategy(1, errors.New("unexpected")))
}

func TestBackoff(t *testing.T) {
	sleeperImpl = &testSleeper{}
	strategy := Backoff(backoff.Constant(100*time.Millisecond), 1*time.Second)

	for i := uint(0); i < 10; i++ {
		assert.True(t, strategy(i+1, errors.New("test-error")))
	}

	assert.EqualValues(t, 1*time.Second, sleeperImpl.(*testSleeper).Total())
	assert.EqualValues(t, 100*time.Millisecond, sleeperImpl.(*testSleeper).Mean())
}

func TestBackoff_Capped(t *testing.T) {
	ts := &testSleeper{}
	sleeperImpl = ts
	strategy := Backoff(backoff.BinaryExponential(100*time.Millisecond), 300*time.Millisecond)

	for i := uint(1); i <= 4; i++ {
		assert.True(t, strategy(i, errors.New("test-error")))
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, ts.sleepTimes)
}

func TestRetriableWhen(t *testing.T) {
	errTransient := errors.New("transient")

	strategy := RetriableWhen(func(err error) bool {
		return errors.Is(err, errTransient)
	})
	assert.True(t, strategy(1, errors.Wrap(errTransient, "wrapped")))
	assert.False(t, strategy(1, errors.New("permanent")))
}

func TestUntilDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	strategy := UntilDone(ctx)
	assert.True(t, strategy(1, errors.New("error")))

	cancel()
	assert.False(t, strategy(2, errors.New("error")))
}

func TestBackoffWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	strategy := BackoffWithContext(ctx, backoff.Constant(10*time.Millisecond), time.Second)

	start := time.Now()
	assert.True(t, strategy(1, errors.New("error")))
	assert.True(t, time.Since(start) >= 10*time.Millisecond)

	strategy = BackoffWithContext(ctx, backoff.Constant(time.Hour), time.Minute)
	time.AfterFunc(10*time.Millisecond, cancel)

	start = time.Now()
	assert.False(t, strategy(2, errors.New("error")))
	assert.True(t, time.Since(start) < time.Minute)
}

type testSleeper struct {
	sleepTimes []time.Duration
}

func (t *testSleeper) Sleep(d time.Duration) {
	t.sleepTimes = append(t.sleepTimes, d)
}

func (t *testSleeper) Total() (total time.Duration) {
	for _, d := range t.sleepTimes {
		total += d
	}
	return total
}

func (t *testSleeper) Mean() (mean time.Duration) {
	for _, d := range t.sleepTimes {
		mean += d
	}
	return time.Duration(int(mean) / len(t.sleepTimes))
}
