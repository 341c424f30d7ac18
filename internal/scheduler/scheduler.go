// Package scheduler drives the cycle pipeline on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/clock"
	"runner-scout/internal/observability"
	"runner-scout/internal/pipeline"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = 30 * time.Second

// Cycle outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPanic   = "panic"
)

// ErrCycleInProgress is returned by RunOnce while another cycle runs.
var ErrCycleInProgress = errors.New("scheduler: cycle already in progress")

// CycleRunner runs one cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*pipeline.Report, error)
}

// Options configures a Scheduler.
type Options struct {
	Runner   CycleRunner
	Interval time.Duration
	Clock    clock.Clock
	Logger   *zerolog.Logger
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Running     bool             `json:"running"`
	Cycles      int64            `json:"cycles"`
	Failures    int64            `json:"failures"`
	LastStarted time.Time        `json:"last_started"`
	LastSuccess time.Time        `json:"last_success"`
	LastError   string           `json:"last_error,omitempty"`
	LastReport  *pipeline.Report `json:"-"`
}

// Scheduler runs cycles one at a time. A failing or panicking cycle is
// logged and the loop continues.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	clock    clock.Clock
	logger   zerolog.Logger

	inFlight atomic.Bool

	mu     sync.RWMutex
	status Status
}

// New creates a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Scheduler{
		runner:   opts.Runner,
		interval: interval,
		clock:    clk,
		logger:   l.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Interval returns the poll cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run executes a cycle immediately, then sleeps one interval after each
// cycle completes, until ctx is cancelled. A slow cycle therefore delays the
// next one instead of being followed back to back. Cancellation is observed
// between cycles only: a running cycle completes with a context detached
// from ctx, bounded by its own adapter timeouts.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && errors.Is(err, ErrCycleInProgress) {
			s.logger.Warn().Msg("cycle skipped, another cycle in progress")
		}

		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping")
			return nil
		case <-timer.C:
		}

		// The timer and a cancellation can be ready together.
		if ctx.Err() != nil {
			s.logger.Info().Msg("scheduler stopping")
			return nil
		}
	}
}

// RunOnce runs a single cycle unless one is already running.
func (s *Scheduler) RunOnce(ctx context.Context) (*pipeline.Report, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.inFlight.Store(false)

	started := s.clock.Now()
	s.mu.Lock()
	s.status.Running = true
	s.status.LastStarted = started
	s.mu.Unlock()

	report, panicked, err := s.safeRun(context.WithoutCancel(ctx))
	finished := s.clock.Now()

	outcome := StatusSuccess
	switch {
	case panicked:
		outcome = StatusPanic
	case err != nil:
		outcome = StatusError
	}
	observability.RecordCycle(outcome, finished.Sub(started).Seconds(), finished.Unix())

	s.mu.Lock()
	s.status.Running = false
	s.status.Cycles++
	if report != nil {
		s.status.LastReport = report
	}
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastSuccess = finished
		s.status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("outcome", outcome).Msg("cycle failed")
	}
	return report, err
}

func (s *Scheduler) safeRun(ctx context.Context) (report *pipeline.Report, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("cycle panic: %v", r)
			s.logger.Error().Str("stack", string(debug.Stack())).Msg("recovered cycle panic")
		}
	}()
	report, err = s.runner.RunCycle(ctx)
	return report, false, err
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
