package measure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/locplot/pkg/history"
)

type fakeMeasurer struct {
	calls    atomic.Int32
	failures int
	block    bool
}

func (f *fakeMeasurer) Name() string { return "fake" }

func (f *fakeMeasurer) Measure(ctx context.Context, dir string) (history.Measurement, error) {
	n := int(f.calls.Add(1))
	if f.block {
		<-ctx.Done()
		return history.Measurement{}, ctx.Err()
	}
	if n <= f.failures {
		return history.Measurement{}, errors.New("boom")
	}
	return history.Measurement{Aggregate: history.AggregateCount{Code: 42}}, nil
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt succeeds", failures: 0, attempts: 2, wantCalls: 1},
		{name: "retry succeeds", failures: 1, attempts: 2, wantCalls: 2},
		{name: "all attempts fail", failures: 5, attempts: 2, wantCalls: 2, wantErr: true},
		{name: "zero attempts means one", failures: 5, attempts: 0, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeMeasurer{failures: tt.failures}
			m := WithRetry(fake, tt.attempts, time.Second)

			got, err := m.Measure(context.Background(), "/tmp/x")
			assert.Equal(t, int32(tt.wantCalls), fake.calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMeasurement)
				var me *MeasurementError
				require.ErrorAs(t, err, &me)
				assert.Equal(t, "fake", me.Tool)
				assert.Equal(t, "/tmp/x", me.Dir)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(42), got.Aggregate.Code)
		})
	}
}

func TestWithRetry_Timeout(t *testing.T) {
	fake := &fakeMeasurer{block: true}
	m := WithRetry(fake, 2, 10*time.Millisecond)

	_, err := m.Measure(context.Background(), "dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMeasurement)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool { return fake.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

// sleepyMeasurer never looks at its context, like gocloc.
type sleepyMeasurer struct {
	sleep time.Duration
}

func (s sleepyMeasurer) Name() string { return "sleepy" }

func (s sleepyMeasurer) Measure(_ context.Context, _ string) (history.Measurement, error) {
	time.Sleep(s.sleep)
	return history.Measurement{Aggregate: history.AggregateCount{Code: 1}}, nil
}

func TestWithRetry_TimeoutIgnoredByBackend(t *testing.T) {
	m := WithRetry(sleepyMeasurer{sleep: 300 * time.Millisecond}, 2, 50*time.Millisecond)

	start := time.Now()
	got, err := m.Measure(context.Background(), "dir")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMeasurement)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, history.Measurement{}, got)
	assert.Less(t, elapsed, 250*time.Millisecond, "each attempt must stop at its deadline")
}

func TestWithRetry_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeMeasurer{block: true}
	_, err := WithRetry(fake, 3, time.Second).Measure(ctx, "dir")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestNew(t *testing.T) {
	m, err := New(Options{Tool: ToolGocloc})
	require.NoError(t, err)
	assert.Equal(t, ToolGocloc, m.Name())

	m, err = New(Options{Tool: ToolCloc, Binary: "/usr/local/bin/cloc"})
	require.NoError(t, err)
	assert.Equal(t, ToolCloc, m.Name())

	_, err = New(Options{Tool: "wc"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}
