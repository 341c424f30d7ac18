package filter

import (
	"fmt"
	"math"

	"runner-scout/internal/domain"
)

// DefaultHighScoreCutoff is the score from which relaxed thresholds apply.
const DefaultHighScoreCutoff = 3.0

// Thresholds bound the candidates one chain accepts.
type Thresholds struct {
	MaxAgeMinutes   float64 `yaml:"max_age_minutes"`
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MaxMarketCapUSD float64 `yaml:"max_market_cap_usd"`
	MinHolders      int     `yaml:"min_holders"`
}

// Validate rejects negative or non-finite bounds.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"max_age_minutes":    t.MaxAgeMinutes,
		"min_liquidity_usd":  t.MinLiquidityUSD,
		"max_market_cap_usd": t.MaxMarketCapUSD,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s: invalid value %v", name, v)
		}
	}
	if t.MinHolders < 0 {
		return fmt.Errorf("min_holders: invalid value %d", t.MinHolders)
	}
	return nil
}

// ChainThresholds pairs the strict bounds with the relaxed bounds used for
// high-scoring candidates.
type ChainThresholds struct {
	Strict  Thresholds `yaml:"strict"`
	Relaxed Thresholds `yaml:"relaxed"`
}

// Validate checks both sets.
func (c ChainThresholds) Validate() error {
	if err := c.Strict.Validate(); err != nil {
		return fmt.Errorf("strict: %w", err)
	}
	if err := c.Relaxed.Validate(); err != nil {
		return fmt.Errorf("relaxed: %w", err)
	}
	return nil
}

// SolanaThresholds returns the default Solana bounds.
func SolanaThresholds() ChainThresholds {
	return ChainThresholds{
		Strict:  Thresholds{MaxAgeMinutes: 30, MinLiquidityUSD: 10_000, MaxMarketCapUSD: 500_000},
		Relaxed: Thresholds{MaxAgeMinutes: 120, MinLiquidityUSD: 5_000, MaxMarketCapUSD: 2_000_000},
	}
}

// EthereumThresholds returns the default Ethereum bounds.
func EthereumThresholds() ChainThresholds {
	return ChainThresholds{
		Strict:  Thresholds{MaxAgeMinutes: 180, MinLiquidityUSD: 20_000, MaxMarketCapUSD: 2_000_000},
		Relaxed: Thresholds{MaxAgeMinutes: 1440, MinLiquidityUSD: 10_000, MaxMarketCapUSD: 5_000_000},
	}
}

// DefaultChainThresholds returns the built-in per-chain bounds.
func DefaultChainThresholds() map[domain.Chain]ChainThresholds {
	return map[domain.Chain]ChainThresholds{
		domain.ChainSolana:   SolanaThresholds(),
		domain.ChainEthereum: EthereumThresholds(),
	}
}
