package measure

import (
	"context"
	"errors"
	"time"

	"github.com/panbanda/locplot/pkg/history"
)

// DefaultTimeout bounds a single measurement attempt.
const DefaultTimeout = 2 * time.Minute

type retrying struct {
	inner    Measurer
	attempts int
	timeout  time.Duration
}

// WithRetry bounds every attempt by timeout and tries up to attempts times.
// The last failure is returned as a *MeasurementError. A cancelled parent
// context stops retrying immediately.
func WithRetry(m Measurer, attempts int, timeout time.Duration) Measurer {
	if attempts < 1 {
		attempts = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &retrying{inner: m, attempts: attempts, timeout: timeout}
}

func (r *retrying) Name() string {
	return r.inner.Name()
}

func (r *retrying) Measure(ctx context.Context, dir string) (history.Measurement, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		m, err := r.attempt(ctx, dir)
		if err == nil {
			return m, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return history.Measurement{}, ctx.Err()
		}
	}
	return history.Measurement{}, &MeasurementError{
		Tool:     r.inner.Name(),
		Dir:      dir,
		Attempts: r.attempts,
		Err:      lastErr,
	}
}

type attemptResult struct {
	m   history.Measurement
	err error
}

// attempt runs one measurement bounded by the timeout. Backends that ignore
// ctx keep running in the background after expiry; their result is dropped.
func (r *retrying) attempt(ctx context.Context, dir string) (history.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return history.Measurement{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		m, err := r.inner.Measure(ctx, dir)
		done <- attemptResult{m: m, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return history.Measurement{}, context.DeadlineExceeded
		}
		return res.m, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return history.Measurement{}, context.DeadlineExceeded
		}
		return history.Measurement{}, ctx.Err()
	}
}
