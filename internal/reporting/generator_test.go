package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage/memory"
)

var generatedAt = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func setupStores(t *testing.T) (*memory.ObservationStore, *memory.AlertStore) {
	t.Helper()
	ctx := context.Background()
	observedAt := generatedAt.Add(-time.Minute).UnixMilli()

	obs := memory.NewObservationStore()
	require.NoError(t, obs.InsertBulk(ctx, []*domain.Observation{
		{CycleID: 7, ObservedAtMs: observedAt, Chain: domain.ChainSolana, PairID: "p1", Symbol: "RUN", Source: "pumpfun", Score: 4.3, FDVUSD: 50_000, LiquidityUSD: 60_000, AgeMinutes: 10, Passed: true},
		{CycleID: 7, ObservedAtMs: observedAt, Chain: domain.ChainSolana, PairID: "p2", Symbol: "MID", Source: "pumpfun", Score: 2.1, FDVUSD: 400_000, LiquidityUSD: 20_000, AgeMinutes: 45},
		{CycleID: 7, ObservedAtMs: observedAt, Chain: domain.ChainSolana, PairID: "p3", Symbol: "OK", Source: "raydium", Score: 3.2, FDVUSD: 90_000, LiquidityUSD: 30_000, AgeMinutes: 20, Passed: true},
		{CycleID: 7, ObservedAtMs: observedAt, Chain: domain.ChainEthereum, PairID: "e1", Symbol: "DEAD", Source: "uniswap", Score: 0},
		{CycleID: 8, ObservedAtMs: observedAt + 30_000, Chain: domain.ChainSolana, PairID: "p1", Source: "pumpfun", Score: 4.0},
	}))

	alerts := memory.NewAlertStore(0)
	require.NoError(t, alerts.InsertBulk(ctx, []*domain.Alert{
		{ID: "a1", CycleID: 7, Chain: domain.ChainSolana, Name: "Runner", PairID: "p1", Source: "pumpfun", Score: 4.3, CreatedAt: observedAt},
		{ID: "a2", CycleID: 7, Chain: domain.ChainSolana, Name: "Okay", PairID: "p3", Source: "raydium", Score: 3.2, CreatedAt: observedAt},
	}))
	return obs, alerts
}

func TestGenerate(t *testing.T) {
	obs, alerts := setupStores(t)
	g := NewGenerator(obs, alerts).WithClock(func() time.Time { return generatedAt })

	r, err := g.Generate(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, generatedAt, r.GeneratedAt)
	assert.Equal(t, int64(7), r.CycleID)
	assert.Equal(t, 4, r.Summary.Observed)
	assert.Equal(t, 2, r.Summary.Passed)
	assert.InDelta(t, 0.5, r.Summary.PassRate, 1e-9)
	assert.InDelta(t, 2.4, r.Summary.ScoreMean, 1e-9)
	assert.InDelta(t, 2.65, r.Summary.ScoreMedian, 1e-9)
	assert.Equal(t, 2, r.Summary.HighScores)

	require.Len(t, r.Sources, 3)
	assert.Equal(t, "pumpfun", r.Sources[0].Source)
	assert.Equal(t, 2, r.Sources[0].Observed)
	assert.Equal(t, 1, r.Sources[0].Passed)
	assert.InDelta(t, 3.2, r.Sources[0].ScoreMean, 1e-9)
	assert.Equal(t, 4.3, r.Sources[0].ScoreMax)
	assert.Equal(t, "raydium", r.Sources[1].Source)
	assert.Equal(t, "uniswap", r.Sources[2].Source)

	require.Len(t, r.Chains, 2)
	assert.Equal(t, domain.ChainEthereum, r.Chains[0].Chain)
	assert.Equal(t, domain.ChainSolana, r.Chains[1].Chain)
	assert.Equal(t, 3, r.Chains[1].Observed)
	assert.InDelta(t, 3.2, r.Chains[1].ScoreMedian, 1e-9)
	assert.InDelta(t, 30_000, r.Chains[1].LiqMedian, 1e-9)

	require.Len(t, r.Top, 4)
	assert.Equal(t, "p1", r.Top[0].PairID)
	assert.Equal(t, "e1", r.Top[3].PairID)

	require.Len(t, r.Alerts, 2)
	assert.Equal(t, "a1", r.Alerts[0].ID)
}

func TestGenerate_TopN(t *testing.T) {
	obs, _ := setupStores(t)
	r, err := NewGenerator(obs, nil).WithTopN(2).Generate(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, r.Top, 2)
	assert.Equal(t, "p1", r.Top[0].PairID)
	assert.Equal(t, "p3", r.Top[1].PairID)
	assert.Empty(t, r.Alerts)
}

func TestGenerate_HighScoreCutoff(t *testing.T) {
	obs, _ := setupStores(t)
	r, err := NewGenerator(obs, nil).WithHighScoreCutoff(4).Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.HighScores)
}

func TestGenerate_UnknownCycle(t *testing.T) {
	obs, alerts := setupStores(t)
	_, err := NewGenerator(obs, alerts).Generate(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoObservations))
}

func TestRenderMarkdown(t *testing.T) {
	obs, alerts := setupStores(t)
	r, err := NewGenerator(obs, alerts).WithClock(func() time.Time { return generatedAt }).Generate(context.Background(), 7)
	require.NoError(t, err)

	md := RenderMarkdown(r)
	for _, want := range []string{
		"# Cycle 7 Report",
		"Generated: 2026-02-01T09:30:00Z",
		"| Pass Rate | 50.00% |",
		"| pumpfun | 2 | 1 | 3.20 | 4.3 |",
		"| 4.3 | solana | RUN | p1 | pumpfun | 10 | yes |",
		"| 3.2 | solana | Okay | p3 | raydium |",
	} {
		assert.Contains(t, md, want)
	}
}

func TestRenderMarkdown_NoAlerts(t *testing.T) {
	md := RenderMarkdown(&Report{CycleID: 1, GeneratedAt: generatedAt})
	assert.Contains(t, md, "No alerts emitted.")
	assert.NotContains(t, md, "Observed: ")
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV([]*domain.Observation{
		{CycleID: 3, ObservedAtMs: 1000, Chain: domain.ChainSolana, PairID: "p1", TokenAddress: "m1", Symbol: "A,B", Source: "pumpfun", Score: 4.3, Passed: true},
	})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "cycle_id,observed_at_ms,chain"))
	assert.Equal(t, `3,1000,solana,p1,m1,"A,B",pumpfun,4.3,0.00,0.00,0.00,0.00,true`, lines[1])
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 0.5))
	assert.Equal(t, 2.0, percentile([]float64{2}, 0.9))
	assert.InDelta(t, 2.5, percentile([]float64{4, 1, 3, 2}, 0.5), 1e-9)
	assert.Equal(t, 4.0, percentile([]float64{4, 1, 3, 2}, 1))
}
