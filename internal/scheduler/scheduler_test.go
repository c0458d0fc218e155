package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeExecutor struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	run     *model.RecurringRun
	err     error
}

func (f *fakeExecutor) ExecuteAllDue(ctx context.Context, now time.Time) (*model.RecurringRun, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.run != nil {
		return f.run, nil
	}
	return &model.RecurringRun{Timestamp: now}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrigger_RecordsStatus(t *testing.T) {
	exec := &fakeExecutor{run: &model.RecurringRun{Processed: 3, Successful: 2, Failed: 1}}
	rec := metrics.NewInMemory()
	s := New(exec, time.Minute, quietLogger(), rec)

	run, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.Successful)

	st := s.Status()
	assert.False(t, st.Running)
	assert.False(t, st.Scheduled)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, 2, st.LastExecuted)
	assert.Equal(t, int64(2), st.TotalExecuted)
	assert.Empty(t, st.LastError)
	assert.Equal(t, "1m0s", st.Interval)
	assert.Equal(t, uint64(1), rec.Snapshot().SchedulerRunCount)
}

func TestTrigger_ExecutorError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("db down")}
	s := New(exec, time.Minute, quietLogger(), nil)

	_, err := s.Trigger(context.Background())
	require.Error(t, err)
	assert.Equal(t, "db down", s.Status().LastError)
	assert.Zero(t, s.Status().TotalExecuted)
}

func TestTrigger_SkipsWhileRunning(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(exec, time.Minute, quietLogger(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background())
		done <- err
	}()
	<-exec.started

	assert.True(t, s.Status().Running)
	_, err := s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(exec.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), exec.calls.Load())
}

func TestRun_TicksAndStops(t *testing.T) {
	exec := &fakeExecutor{started: make(chan struct{}, 1)}
	s := New(exec, time.Second, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Status().Scheduled }, time.Second, 10*time.Millisecond)
	assert.NotNil(t, s.Status().NextRun)

	select {
	case <-exec.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not tick")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, s.Status().Scheduled)
}

func TestRun_RejectsSecondStart(t *testing.T) {
	s := New(&fakeExecutor{}, time.Hour, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return s.Status().Scheduled }, time.Second, 10*time.Millisecond)

	err := s.Run(context.Background())
	require.Error(t, err)

	cancel()
	<-done
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(&fakeExecutor{}, 0, quietLogger(), nil)
	assert.Equal(t, DefaultInterval, s.interval)
}
