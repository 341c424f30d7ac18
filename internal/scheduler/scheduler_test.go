package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/clock"
	"runner-scout/internal/pipeline"
)

type fakeRunner struct {
	calls  atomic.Int64
	active atomic.Int64
	maxPar atomic.Int64
	fn     func(ctx context.Context, n int64) (*pipeline.Report, error)
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*pipeline.Report, error) {
	n := f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxPar.Load()
		if cur <= prev || f.maxPar.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.fn != nil {
		return f.fn(ctx, n)
	}
	return &pipeline.Report{CycleID: n}, nil
}

func newScheduler(t *testing.T, r CycleRunner, interval time.Duration) (*Scheduler, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s, err := New(Options{Runner: r, Interval: interval, Clock: clk})
	require.NoError(t, err)
	return s, clk
}

func TestRunOnce_Success(t *testing.T) {
	r := &fakeRunner{}
	s, clk := newScheduler(t, r, time.Minute)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.CycleID)

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, int64(1), st.Cycles)
	assert.Zero(t, st.Failures)
	assert.Equal(t, clk.Now(), st.LastSuccess)
	assert.Same(t, report, st.LastReport)
}

func TestRunOnce_PanicRecovered(t *testing.T) {
	r := &fakeRunner{fn: func(context.Context, int64) (*pipeline.Report, error) {
		panic("adapter exploded")
	}}
	s, _ := newScheduler(t, r, time.Minute)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adapter exploded")

	st := s.Status()
	assert.Equal(t, int64(1), st.Failures)
	assert.True(t, st.LastSuccess.IsZero())
	assert.Contains(t, st.LastError, "panic")
}

func TestRunOnce_ErrorThenRecovery(t *testing.T) {
	r := &fakeRunner{fn: func(_ context.Context, n int64) (*pipeline.Report, error) {
		if n == 1 {
			return &pipeline.Report{CycleID: n}, errors.New("emit failed")
		}
		return &pipeline.Report{CycleID: n}, nil
	}}
	s, _ := newScheduler(t, r, time.Minute)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, "emit failed", s.Status().LastError)

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	st := s.Status()
	assert.Equal(t, int64(2), st.Cycles)
	assert.Equal(t, int64(1), st.Failures)
	assert.Empty(t, st.LastError)
}

func TestRunOnce_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := &fakeRunner{fn: func(_ context.Context, n int64) (*pipeline.Report, error) {
		close(entered)
		<-release
		return &pipeline.Report{CycleID: n}, nil
	}}
	s, _ := newScheduler(t, r, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.RunOnce(context.Background())
	}()
	<-entered

	assert.True(t, s.Status().Running)
	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(release)
	wg.Wait()
	assert.Equal(t, int64(1), r.calls.Load())
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	r := &fakeRunner{fn: func(_ context.Context, n int64) (*pipeline.Report, error) {
		switch n {
		case 1:
			panic("boom")
		case 2:
			return nil, errors.New("bad cycle")
		}
		return &pipeline.Report{CycleID: n}, nil
	}}
	s, _ := newScheduler(t, r, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() >= 4 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, int64(1), r.maxPar.Load(), "cycles never overlap")
	assert.GreaterOrEqual(t, s.Status().Failures, int64(2))
}

func TestRun_SleepsAfterSlowCycle(t *testing.T) {
	const interval = 40 * time.Millisecond

	var mu sync.Mutex
	var starts, ends []time.Time
	r := &fakeRunner{fn: func(_ context.Context, n int64) (*pipeline.Report, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		if n == 1 {
			time.Sleep(3 * interval)
		}
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
		return &pipeline.Report{CycleID: n}, nil
	}}
	s, _ := newScheduler(t, r, interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 2
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	gap := starts[1].Sub(ends[0])
	assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "next cycle waits a full interval after the previous one ends")
}

func TestRun_CancellationWaitsForRunningCycle(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var cycleCtxErr atomic.Value

	r := &fakeRunner{fn: func(ctx context.Context, n int64) (*pipeline.Report, error) {
		if n == 1 {
			close(entered)
			<-release
			cycleCtxErr.Store(ctx.Err() != nil)
		}
		return &pipeline.Report{CycleID: n}, nil
	}}
	s, _ := newScheduler(t, r, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-entered
	cancel()

	select {
	case <-done:
		t.Fatal("scheduler returned while a cycle was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after the cycle")
	}

	assert.Equal(t, false, cycleCtxErr.Load(), "cycle context is not cancelled mid-cycle")
	assert.Equal(t, int64(1), r.calls.Load())
	assert.Equal(t, int64(1), s.Status().Cycles)
}

func TestNew_Defaults(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	s, err := New(Options{Runner: &fakeRunner{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, s.Interval())
}
