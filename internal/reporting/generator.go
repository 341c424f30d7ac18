// Package reporting renders cycle reports from stored observations and
// alerts.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"runner-scout/internal/domain"
	"runner-scout/internal/filter"
	"runner-scout/internal/storage"
)

// DefaultTopN is the number of observations listed in Report.Top.
const DefaultTopN = 10

// ErrNoObservations is returned when a cycle has no stored observations.
var ErrNoObservations = errors.New("no observations for cycle")

// Generator produces reports from stored data.
type Generator struct {
	observations storage.ObservationStore
	alerts       storage.AlertStore // optional
	topN         int
	cutoff       float64
	now          func() time.Time
}

// NewGenerator creates a report generator. alerts may be nil.
func NewGenerator(observations storage.ObservationStore, alerts storage.AlertStore) *Generator {
	return &Generator{
		observations: observations,
		alerts:       alerts,
		topN:         DefaultTopN,
		cutoff:       filter.DefaultHighScoreCutoff,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopN sets the number of top observations listed.
func (g *Generator) WithTopN(n int) *Generator {
	if n > 0 {
		g.topN = n
	}
	return g
}

// WithHighScoreCutoff sets the score counted as high.
func (g *Generator) WithHighScoreCutoff(cutoff float64) *Generator {
	g.cutoff = cutoff
	return g
}

// Generate builds the report of one cycle.
func (g *Generator) Generate(ctx context.Context, cycleID int64) (*Report, error) {
	obs, err := g.observations.GetByCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("cycle %d: %w", cycleID, ErrNoObservations)
	}

	r := &Report{
		GeneratedAt: g.now(),
		CycleID:     cycleID,
		ObservedAt:  obs[0].ObservedAtMs,
		Summary:     g.summary(obs),
		Sources:     sourceRows(obs),
		Chains:      chainRows(obs),
		Top:         g.top(obs),
	}

	if g.alerts != nil {
		alerts, err := g.alerts.GetByCycle(ctx, cycleID)
		if err != nil {
			return nil, fmt.Errorf("load alerts: %w", err)
		}
		r.Alerts = alerts
	}
	return r, nil
}

func (g *Generator) summary(obs []*domain.Observation) Summary {
	scores := make([]float64, 0, len(obs))
	s := Summary{Observed: len(obs)}
	for _, o := range obs {
		scores = append(scores, o.Score)
		if o.Passed {
			s.Passed++
		}
		if o.Score >= g.cutoff {
			s.HighScores++
		}
	}
	s.PassRate = rate(s.Passed, s.Observed)
	s.ScoreMean = mean(scores)
	s.ScoreMedian = percentile(scores, 0.5)
	s.ScoreP90 = percentile(scores, 0.9)
	return s
}

func sourceRows(obs []*domain.Observation) []SourceRow {
	scores := make(map[string][]float64)
	rows := make(map[string]*SourceRow)
	for _, o := range obs {
		row, ok := rows[o.Source]
		if !ok {
			row = &SourceRow{Source: o.Source}
			rows[o.Source] = row
		}
		row.Observed++
		if o.Passed {
			row.Passed++
		}
		if o.Score > row.ScoreMax {
			row.ScoreMax = o.Score
		}
		scores[o.Source] = append(scores[o.Source], o.Score)
	}

	out := make([]SourceRow, 0, len(rows))
	for name, row := range rows {
		row.ScoreMean = mean(scores[name])
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func chainRows(obs []*domain.Observation) []ChainRow {
	type acc struct {
		row              ChainRow
		scores, liq, fdv []float64
	}
	byChain := make(map[domain.Chain]*acc)
	for _, o := range obs {
		a, ok := byChain[o.Chain]
		if !ok {
			a = &acc{row: ChainRow{Chain: o.Chain}}
			byChain[o.Chain] = a
		}
		a.row.Observed++
		if o.Passed {
			a.row.Passed++
		}
		a.scores = append(a.scores, o.Score)
		a.liq = append(a.liq, o.LiquidityUSD)
		a.fdv = append(a.fdv, o.FDVUSD)
	}

	out := make([]ChainRow, 0, len(byChain))
	for _, a := range byChain {
		a.row.ScoreMedian = percentile(a.scores, 0.5)
		a.row.LiqMedian = percentile(a.liq, 0.5)
		a.row.FDVMedian = percentile(a.fdv, 0.5)
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out
}

// top returns the highest-scoring observations, ties broken by pair id.
func (g *Generator) top(obs []*domain.Observation) []*domain.Observation {
	sorted := make([]*domain.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PairID < sorted[j].PairID
	})
	if len(sorted) > g.topN {
		sorted = sorted[:g.topN]
	}
	return sorted
}
