package domain

import (
	"errors"
	"math"
)

// ErrScoreAlreadySet is returned when a candidate is scored twice.
var ErrScoreAlreadySet = errors.New("runner score already set")

// Window is a provider time window label.
type Window string

const (
	Window5m  Window = "5m"
	Window1h  Window = "1h"
	Window6h  Window = "6h"
	Window24h Window = "24h"
)

// TxnCounts holds buy and sell transaction counts for one window.
type TxnCounts struct {
	Buys  int
	Sells int
}

// Total returns buys + sells.
func (t TxnCounts) Total() int {
	return t.Buys + t.Sells
}

// Candidate is one discovered token/pair observation.
// It is immutable after aggregation except for the runner score,
// which is written once by the scoring stage.
type Candidate struct {
	Chain        Chain
	PairID       string // provider pair id (primary cycle dedup key)
	TokenAddress string // contract or mint address (fallback key)
	Name         string
	Symbol       string
	URL          string

	LiquidityUSD float64
	FDVUSD       float64 // market cap proxy
	Volume24hUSD float64
	Volume6hUSD  float64

	PriceChange map[Window]float64   // signed percent
	Txns        map[Window]TxnCounts // nil when provider has no counts

	CreatedAtMs int64 // pair creation (ms)
	Holders     int
	Source      string

	runnerScore *float64
}

// AgeMinutes returns minutes since pair creation, never negative.
func (c *Candidate) AgeMinutes(nowMs int64) float64 {
	age := float64(nowMs-c.CreatedAtMs) / 60000
	if age < 0 || math.IsNaN(age) {
		return 0
	}
	return age
}

// Change returns the price change for a window, 0 when absent.
func (c *Candidate) Change(w Window) float64 {
	if c.PriceChange == nil {
		return 0
	}
	return c.PriceChange[w]
}

// TxnsFor returns transaction counts for a window.
func (c *Candidate) TxnsFor(w Window) (TxnCounts, bool) {
	if c.Txns == nil {
		return TxnCounts{}, false
	}
	t, ok := c.Txns[w]
	return t, ok
}

// Score returns the runner score and whether it was set.
func (c *Candidate) Score() (float64, bool) {
	if c.runnerScore == nil {
		return 0, false
	}
	return *c.runnerScore, true
}

// SetScore records the runner score. It may be called once.
func (c *Candidate) SetScore(v float64) error {
	if c.runnerScore != nil {
		return ErrScoreAlreadySet
	}
	c.runnerScore = &v
	return nil
}

// ScoreOrZero returns the runner score, or 0 when unscored.
func (c *Candidate) ScoreOrZero() float64 {
	s, _ := c.Score()
	return s
}
