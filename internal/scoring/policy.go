package scoring

import (
	"errors"
	"fmt"
	"math"

	"runner-scout/internal/domain"
)

// Band awards Weight when Min <= value < Max. Max 0 means unbounded.
type Band struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Weight float64 `yaml:"weight"`
}

func (b Band) contains(v float64) bool {
	return v >= b.Min && (b.Max <= 0 || v < b.Max)
}

// Threshold awards Weight when value >= Min.
type Threshold struct {
	Min    float64 `yaml:"min"`
	Weight float64 `yaml:"weight"`
}

// AgeBucket awards Weight when age <= MaxMinutes.
type AgeBucket struct {
	MaxMinutes float64 `yaml:"max_minutes"`
	Weight     float64 `yaml:"weight"`
}

// MomentumTerm converts a window's price change into change/Scale,
// capped at Cap.
type MomentumTerm struct {
	Window domain.Window `yaml:"window"`
	Scale  float64       `yaml:"scale"`
	Cap    float64       `yaml:"cap"`
}

// Policy is the weight table of one chain.
type Policy struct {
	MarketCap          []Band         `yaml:"market_cap"`
	Liquidity          []Threshold    `yaml:"liquidity"`
	Freshness          []AgeBucket    `yaml:"freshness"`
	Momentum           []MomentumTerm `yaml:"momentum"`
	MomentumCap        float64        `yaml:"momentum_cap"`
	VolumeRatio        []Threshold    `yaml:"volume_ratio"`
	Acceleration       []Threshold    `yaml:"acceleration"`
	BuyPressure        []Threshold    `yaml:"buy_pressure"`
	MinTxnsForPressure int            `yaml:"min_txns_for_pressure"`
}

// sharedActivity are the activity terms common to both built-in policies.
func sharedActivity(p *Policy) {
	p.VolumeRatio = []Threshold{{Min: 0.5, Weight: 0.15}, {Min: 1, Weight: 0.3}, {Min: 2, Weight: 0.5}}
	p.Acceleration = []Threshold{{Min: 1.1, Weight: 0.2}, {Min: 1.5, Weight: 0.4}}
	p.BuyPressure = []Threshold{{Min: 0.55, Weight: 0.1}, {Min: 0.6, Weight: 0.3}, {Min: 0.7, Weight: 0.5}}
	p.MinTxnsForPressure = 10
	p.MomentumCap = 1.0
}

// SolanaPolicy returns the default Solana weight table.
func SolanaPolicy() Policy {
	p := Policy{
		MarketCap: []Band{
			{Min: 10_000, Max: 100_000, Weight: 1.0},
			{Min: 100_000, Max: 500_000, Weight: 0.7},
			{Min: 0, Max: 10_000, Weight: 0.3},
			{Min: 500_000, Max: 2_000_000, Weight: 0.2},
		},
		Liquidity: []Threshold{
			{Min: 5_000, Weight: 0.2},
			{Min: 20_000, Weight: 0.5},
			{Min: 50_000, Weight: 0.8},
			{Min: 100_000, Weight: 1.0},
		},
		Freshness: []AgeBucket{
			{MaxMinutes: 15, Weight: 1.0},
			{MaxMinutes: 30, Weight: 0.8},
			{MaxMinutes: 60, Weight: 0.6},
			{MaxMinutes: 180, Weight: 0.4},
			{MaxMinutes: 360, Weight: 0.2},
		},
		Momentum: []MomentumTerm{
			{Window: domain.Window5m, Scale: 20, Cap: 0.4},
			{Window: domain.Window1h, Scale: 50, Cap: 0.6},
			{Window: domain.Window6h, Scale: 100, Cap: 0.4},
		},
	}
	sharedActivity(&p)
	return p
}

// EthereumPolicy returns the default Ethereum weight table. Bands are wider
// and higher than Solana's.
func EthereumPolicy() Policy {
	p := Policy{
		MarketCap: []Band{
			{Min: 50_000, Max: 2_000_000, Weight: 1.0},
			{Min: 2_000_000, Max: 5_000_000, Weight: 0.5},
		},
		Liquidity: []Threshold{
			{Min: 10_000, Weight: 0.4},
			{Min: 20_000, Weight: 0.7},
			{Min: 50_000, Weight: 0.9},
			{Min: 150_000, Weight: 1.0},
		},
		Freshness: []AgeBucket{
			{MaxMinutes: 60, Weight: 1.0},
			{MaxMinutes: 180, Weight: 0.8},
			{MaxMinutes: 720, Weight: 0.4},
			{MaxMinutes: 1440, Weight: 0.2},
		},
		Momentum: []MomentumTerm{
			{Window: domain.Window5m, Scale: 30, Cap: 0.4},
			{Window: domain.Window1h, Scale: 80, Cap: 0.6},
			{Window: domain.Window6h, Scale: 150, Cap: 0.4},
		},
	}
	sharedActivity(&p)
	return p
}

// Policies selects a policy per chain.
type Policies struct {
	ByChain map[domain.Chain]Policy
	Default Policy
}

// DefaultPolicies returns the built-in tables; unknown chains use the
// Solana-shaped default.
func DefaultPolicies() Policies {
	return Policies{
		ByChain: map[domain.Chain]Policy{
			domain.ChainSolana:   SolanaPolicy(),
			domain.ChainEthereum: EthereumPolicy(),
		},
		Default: SolanaPolicy(),
	}
}

// For returns the policy of chain.
func (p Policies) For(chain domain.Chain) Policy {
	if pol, ok := p.ByChain[chain]; ok {
		return pol
	}
	return p.Default
}

// Validate checks that every weight and boundary is finite and non-negative.
func (p Policy) Validate() error {
	check := func(name string, vs ...float64) error {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%s: invalid value %v", name, v)
			}
		}
		return nil
	}

	for _, b := range p.MarketCap {
		if err := check("market_cap", b.Min, b.Max, b.Weight); err != nil {
			return err
		}
		if b.Max > 0 && b.Max <= b.Min {
			return fmt.Errorf("market_cap: band max %v <= min %v", b.Max, b.Min)
		}
	}
	for name, ts := range map[string][]Threshold{
		"liquidity":    p.Liquidity,
		"volume_ratio": p.VolumeRatio,
		"acceleration": p.Acceleration,
		"buy_pressure": p.BuyPressure,
	} {
		for _, t := range ts {
			if err := check(name, t.Min, t.Weight); err != nil {
				return err
			}
		}
	}
	for _, b := range p.Freshness {
		if err := check("freshness", b.MaxMinutes, b.Weight); err != nil {
			return err
		}
	}
	for _, m := range p.Momentum {
		if err := check("momentum", m.Scale, m.Cap); err != nil {
			return err
		}
		if m.Scale == 0 {
			return errors.New("momentum: scale must be positive")
		}
	}
	return check("momentum_cap", p.MomentumCap)
}
