package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/clock"
	"runner-scout/internal/domain"
	"runner-scout/internal/scoring"
	"runner-scout/internal/seen"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newFilter(t *testing.T, opts Options) (*Filter, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(start)
	if opts.Seen == nil {
		opts.Seen = seen.New(seen.Options{Clock: clk})
	}
	f, err := New(opts)
	require.NoError(t, err)
	return f, clk
}

func scored(t *testing.T, c *domain.Candidate, score float64) *domain.Candidate {
	t.Helper()
	require.NoError(t, c.SetScore(score))
	return c
}

func solanaCandidate(pair, symbol string, nowMs int64) *domain.Candidate {
	return &domain.Candidate{
		Chain:        domain.ChainSolana,
		PairID:       pair,
		Name:         symbol + " token",
		Symbol:       symbol,
		FDVUSD:       50_000,
		LiquidityUSD: 60_000,
		CreatedAtMs:  nowMs - 10*60000,
	}
}

func TestFilter_SolanaRunnerScenarioPasses(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	c := solanaCandidate("Pair1", "RUN", nowMs)
	c.PriceChange = map[domain.Window]float64{domain.Window5m: 12, domain.Window1h: 30}
	c.Txns = map[domain.Window]domain.TxnCounts{domain.Window1h: {Buys: 200, Sells: 50}}
	require.NoError(t, c.SetScore(scoring.Score(c, scoring.SolanaPolicy(), nowMs)))

	out := f.Apply([]*domain.Candidate{c}, nowMs)
	require.Len(t, out, 1)
	assert.Same(t, c, out[0])
}

func TestFilter_EthereumZeroScenarioExcluded(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	c := &domain.Candidate{Chain: domain.ChainEthereum, PairID: "0xpair", Symbol: "ZERO"}
	require.NoError(t, c.SetScore(scoring.Score(c, scoring.EthereumPolicy(), nowMs)))

	assert.Empty(t, f.Apply([]*domain.Candidate{c}, nowMs))
	assert.Equal(t, ReasonLiquidity, f.Evaluate(c, nowMs))
}

func TestFilter_RelaxationAtCutoff(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	// 90 minutes old with 7k liquidity: outside strict, inside relaxed.
	build := func(pair string) *domain.Candidate {
		c := solanaCandidate(pair, pair, nowMs)
		c.CreatedAtMs = nowMs - 90*60000
		c.LiquidityUSD = 7_000
		return c
	}

	low := scored(t, build("LOW"), 2.9)
	high := scored(t, build("HIGH"), 3.0)

	assert.Equal(t, ReasonAge, f.Evaluate(low, nowMs))
	assert.Equal(t, ReasonPassed, f.Evaluate(high, nowMs))

	out := f.Apply([]*domain.Candidate{low, high}, nowMs)
	require.Len(t, out, 1)
	assert.Equal(t, "HIGH", out[0].PairID)
}

func TestFilter_ThresholdsFor(t *testing.T) {
	f, _ := newFilter(t, Options{})

	assert.Equal(t, SolanaThresholds().Strict, f.ThresholdsFor(domain.ChainSolana, 2.9))
	assert.Equal(t, SolanaThresholds().Relaxed, f.ThresholdsFor(domain.ChainSolana, 3.0))
	assert.Equal(t, EthereumThresholds().Relaxed, f.ThresholdsFor(domain.ChainEthereum, 4.2))
	assert.Equal(t, SolanaThresholds().Strict, f.ThresholdsFor("base", 1.0))
}

func TestFilter_Reasons(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	tests := []struct {
		name   string
		mutate func(c *domain.Candidate)
		want   string
	}{
		{"passes", func(c *domain.Candidate) {}, ReasonPassed},
		{"too old", func(c *domain.Candidate) { c.CreatedAtMs = nowMs - 31*60000 }, ReasonAge},
		{"thin liquidity", func(c *domain.Candidate) { c.LiquidityUSD = 9_999 }, ReasonLiquidity},
		{"market cap too high", func(c *domain.Candidate) { c.FDVUSD = 600_000 }, ReasonMarketCap},
		{"future creation is fresh", func(c *domain.Candidate) { c.CreatedAtMs = nowMs + 60000 }, ReasonPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := solanaCandidate("P", "SYM", nowMs)
			tt.mutate(c)
			assert.Equal(t, tt.want, f.Evaluate(c, nowMs))
		})
	}
}

func TestFilter_MinHolders(t *testing.T) {
	chains := DefaultChainThresholds()
	sol := chains[domain.ChainSolana]
	sol.Strict.MinHolders = 100
	chains[domain.ChainSolana] = sol

	f, clk := newFilter(t, Options{Chains: chains})
	nowMs := clk.Now().UnixMilli()

	c := solanaCandidate("P", "SYM", nowMs)
	c.Holders = 50
	assert.Equal(t, ReasonHolders, f.Evaluate(c, nowMs))

	c.Holders = 100
	assert.Equal(t, ReasonPassed, f.Evaluate(c, nowMs))
}

func TestFilter_Narrative(t *testing.T) {
	f, clk := newFilter(t, Options{Narrative: `\b(ai|agent)\b`})
	nowMs := clk.Now().UnixMilli()

	match := solanaCandidate("P1", "AGENT", nowMs)
	match.Name = "Smart Agent"
	miss := solanaCandidate("P2", "DOGE", nowMs)
	miss.Name = "Dog Coin"

	assert.Equal(t, ReasonPassed, f.Evaluate(match, nowMs))
	assert.Equal(t, ReasonNarrative, f.Evaluate(miss, nowMs))
}

func TestFilter_SeenSuppressesUntilCooldown(t *testing.T) {
	f, clk := newFilter(t, Options{})

	nowMs := clk.Now().UnixMilli()
	first := f.Apply([]*domain.Candidate{solanaCandidate("P1", "RUN", nowMs)}, nowMs)
	require.Len(t, first, 1)

	clk.Advance(30 * time.Minute)
	nowMs = clk.Now().UnixMilli()
	again := solanaCandidate("P9", "RUN", nowMs)
	assert.Empty(t, f.Apply([]*domain.Candidate{again}, nowMs), "same identity within the window")

	clk.Advance(31 * time.Minute)
	nowMs = clk.Now().UnixMilli()
	later := solanaCandidate("P9", "RUN", nowMs)
	assert.Len(t, f.Apply([]*domain.Candidate{later}, nowMs), 1, "accepted after the window reset")
}

func TestFilter_SameIdentityTwiceInOneCall(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	a := solanaCandidate("P1", "RUN", nowMs)
	b := solanaCandidate("P2", "RUN", nowMs)

	out := f.Apply([]*domain.Candidate{a, b}, nowMs)
	require.Len(t, out, 1)
	assert.Same(t, a, out[0])
}

func TestFilter_BackfilledNameMatchesEarlierAddress(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	bare := solanaCandidate("P1", "", nowMs)
	bare.Name = ""
	bare.TokenAddress = "MintX"
	require.Len(t, f.Apply([]*domain.Candidate{bare}, nowMs), 1)

	clk.Advance(time.Minute)
	nowMs = clk.Now().UnixMilli()
	named := solanaCandidate("P1", "RUN", nowMs)
	named.TokenAddress = "MintX"
	assert.Equal(t, ReasonSeen, f.Evaluate(named, nowMs))
	assert.Empty(t, f.Unseen([]*domain.Candidate{named}))

	other := solanaCandidate("P2", "RUN", nowMs)
	other.TokenAddress = "MintY"
	require.Len(t, f.Apply([]*domain.Candidate{other}, nowMs), 1)

	sameName := solanaCandidate("P3", "RUN", nowMs)
	sameName.TokenAddress = "MintZ"
	assert.Equal(t, ReasonSeen, f.Evaluate(sameName, nowMs), "name key alone suppresses")
}

func TestFilter_UnseenKeepsOrder(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	require.Len(t, f.Apply([]*domain.Candidate{solanaCandidate("P1", "OLD", nowMs)}, nowMs), 1)

	a := solanaCandidate("A", "AAA", nowMs)
	old := solanaCandidate("P7", "OLD", nowMs)
	b := solanaCandidate("B", "BBB", nowMs)
	anon := &domain.Candidate{Chain: domain.ChainSolana}

	out := f.Unseen([]*domain.Candidate{a, old, b, anon})
	require.Len(t, out, 2)
	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
}

func TestFilter_SortedByScoreStable(t *testing.T) {
	f, clk := newFilter(t, Options{})
	nowMs := clk.Now().UnixMilli()

	a := scored(t, solanaCandidate("A", "A", nowMs), 2.0)
	b := scored(t, solanaCandidate("B", "B", nowMs), 4.5)
	c := scored(t, solanaCandidate("C", "C", nowMs), 2.0)
	d := scored(t, solanaCandidate("D", "D", nowMs), 3.1)

	out := f.Apply([]*domain.Candidate{a, b, c, d}, nowMs)
	require.Len(t, out, 4)

	var order []string
	for _, c := range out {
		order = append(order, c.PairID)
	}
	assert.Equal(t, []string{"B", "D", "A", "C"}, order)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoSeenState)

	st := seen.New(seen.Options{})

	_, err = New(Options{Seen: st, Narrative: "(unclosed"})
	assert.Error(t, err)

	_, err = New(Options{Seen: st, HighScoreCutoff: -1})
	assert.Error(t, err)

	bad := DefaultChainThresholds()
	bad[domain.ChainSolana] = ChainThresholds{Strict: Thresholds{MinLiquidityUSD: -5}}
	_, err = New(Options{Seen: st, Chains: bad})
	assert.Error(t, err)
}
