// Package pipeline runs one poll cycle: aggregate, drop seen identities,
// score, filter, emit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/aggregate"
	"runner-scout/internal/alert"
	"runner-scout/internal/clock"
	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// Aggregator produces the deduplicated candidates of a cycle.
type Aggregator interface {
	Run(ctx context.Context) *aggregate.Result
}

// Scorer writes runner scores.
type Scorer interface {
	ScoreAll(candidates []*domain.Candidate, nowMs int64)
}

// Filter selects and ranks alert-worthy candidates. Unseen runs before
// scoring and drops identities already alerted in the current window.
type Filter interface {
	Unseen(candidates []*domain.Candidate) []*domain.Candidate
	Apply(candidates []*domain.Candidate, nowMs int64) []*domain.Candidate
}

// Options configures a Pipeline.
type Options struct {
	Aggregator   Aggregator
	Scorer       Scorer
	Filter       Filter
	Emitter      alert.Emitter
	Observations storage.ObservationStore // optional
	Clock        clock.Clock
	Logger       *zerolog.Logger
	// CycleIDBase offsets cycle ids: cycles are numbered CycleIDBase+1,
	// CycleIDBase+2, ...
	CycleIDBase int64
}

// Pipeline wires the cycle stages together. RunCycle must not be called
// concurrently; the scheduler guarantees this.
type Pipeline struct {
	aggregator   Aggregator
	scorer       Scorer
	filter       Filter
	emitter      alert.Emitter
	observations storage.ObservationStore
	clock        clock.Clock
	logger       zerolog.Logger
	lastID       atomic.Int64
}

// Report summarizes one cycle.
type Report struct {
	CycleID         int64
	StartedAt       time.Time
	Duration        time.Duration
	Candidates      int
	Suppressed      int // already seen, not scored
	Alerts          int
	FallbackSkipped bool
	SourceErrors    int
	Sources         []aggregate.SourceReport
}

// New validates opts and creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Aggregator == nil:
		return nil, errors.New("pipeline: aggregator is required")
	case opts.Scorer == nil:
		return nil, errors.New("pipeline: scorer is required")
	case opts.Filter == nil:
		return nil, errors.New("pipeline: filter is required")
	case opts.Emitter == nil:
		return nil, errors.New("pipeline: emitter is required")
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	p := &Pipeline{
		aggregator:   opts.Aggregator,
		scorer:       opts.Scorer,
		filter:       opts.Filter,
		emitter:      opts.Emitter,
		observations: opts.Observations,
		clock:        clk,
		logger:       l.With().Str("component", "pipeline").Logger(),
	}
	p.lastID.Store(opts.CycleIDBase)
	return p, nil
}

// RunCycle executes one cycle. All candidates are judged against the cycle
// start time. The returned error is an emit failure; the report is always
// filled.
func (p *Pipeline) RunCycle(ctx context.Context) (*Report, error) {
	start := p.clock.Now()
	nowMs := start.UnixMilli()
	report := &Report{CycleID: p.lastID.Add(1), StartedAt: start}
	logger := p.logger.With().Int64("cycle", report.CycleID).Logger()

	res := p.aggregator.Run(ctx)
	report.Candidates = len(res.Candidates)
	report.FallbackSkipped = res.FallbackSkipped
	report.Sources = res.Reports
	for _, r := range res.Reports {
		if r.Err != nil {
			report.SourceErrors++
		}
	}

	fresh := p.filter.Unseen(res.Candidates)
	report.Suppressed = len(res.Candidates) - len(fresh)

	p.scorer.ScoreAll(fresh, nowMs)
	passed := p.filter.Apply(fresh, nowMs)
	report.Alerts = len(passed)

	p.recordObservations(ctx, logger, report.CycleID, nowMs, fresh, passed)

	cycle := alert.NewCycle(report.CycleID, start, passed)
	emitErr := p.emitter.Emit(ctx, cycle)

	report.Duration = p.clock.Now().Sub(start)

	logger.Info().
		Int("candidates", report.Candidates).
		Int("suppressed", report.Suppressed).
		Int("alerts", report.Alerts).
		Int("source_errors", report.SourceErrors).
		Bool("fallback_skipped", report.FallbackSkipped).
		Dur("duration", report.Duration).
		Msg("cycle complete")

	if emitErr != nil {
		return report, fmt.Errorf("emit cycle %d: %w", report.CycleID, emitErr)
	}
	return report, nil
}

// LastCycleID returns the id of the most recent cycle, CycleIDBase before
// the first.
func (p *Pipeline) LastCycleID() int64 {
	return p.lastID.Load()
}

// recordObservations persists every candidate scored in the cycle. A write
// failure is logged and does not fail the cycle.
func (p *Pipeline) recordObservations(ctx context.Context, logger zerolog.Logger, cycleID, nowMs int64, all, passed []*domain.Candidate) {
	if p.observations == nil || len(all) == 0 {
		return
	}

	ok := make(map[*domain.Candidate]struct{}, len(passed))
	for _, c := range passed {
		ok[c] = struct{}{}
	}

	obs := make([]*domain.Observation, 0, len(all))
	for _, c := range all {
		_, isPassed := ok[c]
		obs = append(obs, &domain.Observation{
			CycleID:      cycleID,
			ObservedAtMs: nowMs,
			Chain:        c.Chain,
			PairID:       c.PairID,
			TokenAddress: c.TokenAddress,
			Symbol:       c.Symbol,
			Source:       c.Source,
			Score:        c.ScoreOrZero(),
			FDVUSD:       c.FDVUSD,
			LiquidityUSD: c.LiquidityUSD,
			Volume24hUSD: c.Volume24hUSD,
			AgeMinutes:   c.AgeMinutes(nowMs),
			Passed:       isPassed,
		})
	}

	if err := p.observations.InsertBulk(ctx, obs); err != nil {
		logger.Warn().Err(err).Int("observations", len(obs)).Msg("record observations failed")
	}
}
