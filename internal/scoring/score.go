// Package scoring computes the runner score: a chain-specific weighted
// additive heuristic bounded to [0, 5] with one decimal.
package scoring

import (
	"math"

	"runner-scout/internal/domain"
)

// MaxScore is the upper bound of the runner score.
const MaxScore = 5.0

// Components are the individual terms of a score before clamping.
type Components struct {
	MarketCap    float64
	Liquidity    float64
	Freshness    float64
	Momentum     float64
	VolumeRatio  float64
	Acceleration float64
	BuyPressure  float64
}

// Total sums all terms.
func (c Components) Total() float64 {
	return c.MarketCap + c.Liquidity + c.Freshness + c.Momentum +
		c.VolumeRatio + c.Acceleration + c.BuyPressure
}

// Score returns the runner score of c under p at nowMs.
func Score(c *domain.Candidate, p Policy, nowMs int64) float64 {
	return Finalize(Breakdown(c, p, nowMs).Total())
}

// Finalize clamps to [0, MaxScore] and rounds to one decimal.
func Finalize(total float64) float64 {
	if math.IsNaN(total) || total <= 0 {
		return 0
	}
	if total > MaxScore {
		total = MaxScore
	}
	return math.Round(total*10) / 10
}

// Breakdown computes each term. Missing, non-finite, negative or
// zero-denominator inputs contribute 0.
func Breakdown(c *domain.Candidate, p Policy, nowMs int64) Components {
	var out Components

	if fdv := usable(c.FDVUSD); fdv > 0 {
		for _, b := range p.MarketCap {
			if b.contains(fdv) {
				out.MarketCap = b.Weight
				break
			}
		}
	}

	out.Liquidity = highest(p.Liquidity, usable(c.LiquidityUSD))

	if c.CreatedAtMs > 0 {
		age := c.AgeMinutes(nowMs)
		for _, b := range p.Freshness {
			if age <= b.MaxMinutes {
				out.Freshness = b.Weight
				break
			}
		}
	}

	out.Momentum = momentum(c, p)

	if liq := usable(c.LiquidityUSD); liq > 0 {
		out.VolumeRatio = highest(p.VolumeRatio, usable(c.Volume24hUSD)/liq)
	}

	if vol24 := usable(c.Volume24hUSD); vol24 > 0 {
		out.Acceleration = highest(p.Acceleration, usable(c.Volume6hUSD)*4/vol24)
	}

	if t, ok := c.TxnsFor(domain.Window1h); ok {
		total := t.Total()
		if total > 0 && total >= p.MinTxnsForPressure && t.Buys >= 0 {
			out.BuyPressure = highest(p.BuyPressure, float64(t.Buys)/float64(total))
		}
	}

	return out
}

func momentum(c *domain.Candidate, p Policy) float64 {
	sum := 0.0
	for _, m := range p.Momentum {
		change := usable(c.Change(m.Window))
		if change <= 0 || m.Scale <= 0 {
			continue
		}
		sum += math.Min(change/m.Scale, m.Cap)
	}
	if p.MomentumCap > 0 && sum > p.MomentumCap {
		return p.MomentumCap
	}
	return sum
}

// highest returns the largest weight whose threshold v reaches.
func highest(ts []Threshold, v float64) float64 {
	if v <= 0 {
		return 0
	}
	best := 0.0
	for _, t := range ts {
		if v >= t.Min && t.Weight > best {
			best = t.Weight
		}
	}
	return best
}

// usable maps NaN, Inf and negatives to 0.
func usable(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
