// Package filter selects which scored candidates become alerts.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/domain"
	"runner-scout/internal/idhash"
	"runner-scout/internal/observability"
	"runner-scout/internal/seen"
)

// Decision reasons. Everything except ReasonPassed rejects the candidate.
const (
	ReasonPassed    = "passed"
	ReasonSeen      = "seen"
	ReasonNarrative = "narrative"
	ReasonAge       = "age"
	ReasonLiquidity = "liquidity"
	ReasonMarketCap = "market_cap"
	ReasonHolders   = "holders"
)

// ErrNoSeenState is returned by New without a seen-state.
var ErrNoSeenState = errors.New("filter: seen state is required")

// Options configures a Filter.
type Options struct {
	Chains          map[domain.Chain]ChainThresholds // nil uses DefaultChainThresholds
	Default         *ChainThresholds                 // unknown chains; nil uses Solana bounds
	HighScoreCutoff float64                          // 0 uses DefaultHighScoreCutoff
	Narrative       string                           // case-insensitive regex; empty matches all
	Seen            *seen.State
	Logger          *zerolog.Logger
}

// Filter applies thresholds, the narrative match and the seen-state.
type Filter struct {
	chains    map[domain.Chain]ChainThresholds
	fallback  ChainThresholds
	cutoff    float64
	narrative *regexp.Regexp
	seen      *seen.State
	logger    zerolog.Logger
}

// New validates opts and creates a Filter.
func New(opts Options) (*Filter, error) {
	if opts.Seen == nil {
		return nil, ErrNoSeenState
	}

	chains := opts.Chains
	if chains == nil {
		chains = DefaultChainThresholds()
	}
	for chain, t := range chains {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("filter %s: %w", chain, err)
		}
	}

	fallback := SolanaThresholds()
	if opts.Default != nil {
		fallback = *opts.Default
		if err := fallback.Validate(); err != nil {
			return nil, fmt.Errorf("filter default: %w", err)
		}
	}

	cutoff := opts.HighScoreCutoff
	if cutoff == 0 {
		cutoff = DefaultHighScoreCutoff
	}
	if cutoff < 0 {
		return nil, fmt.Errorf("filter: invalid high score cutoff %v", cutoff)
	}

	var narrative *regexp.Regexp
	if opts.Narrative != "" {
		re, err := regexp.Compile("(?i)" + opts.Narrative)
		if err != nil {
			return nil, fmt.Errorf("filter: narrative: %w", err)
		}
		narrative = re
	}

	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	return &Filter{
		chains:    chains,
		fallback:  fallback,
		cutoff:    cutoff,
		narrative: narrative,
		seen:      opts.Seen,
		logger:    l.With().Str("component", "filter").Logger(),
	}, nil
}

// ThresholdsFor returns the bounds applied to a candidate of chain with
// the given score.
func (f *Filter) ThresholdsFor(chain domain.Chain, score float64) Thresholds {
	t, ok := f.chains[chain]
	if !ok {
		t = f.fallback
	}
	if score >= f.cutoff {
		return t.Relaxed
	}
	return t.Strict
}

// Evaluate returns the decision reason for one candidate without touching
// the seen-state.
func (f *Filter) Evaluate(c *domain.Candidate, nowMs int64) string {
	if !f.isNew(c) {
		return ReasonSeen
	}
	if f.narrative != nil && !f.narrative.MatchString(c.Name+" "+c.Symbol) {
		return ReasonNarrative
	}

	t := f.ThresholdsFor(c.Chain, c.ScoreOrZero())
	switch {
	case c.AgeMinutes(nowMs) > t.MaxAgeMinutes:
		return ReasonAge
	case c.LiquidityUSD < t.MinLiquidityUSD:
		return ReasonLiquidity
	case c.FDVUSD > t.MaxMarketCapUSD:
		return ReasonMarketCap
	case c.Holders < t.MinHolders:
		return ReasonHolders
	}
	return ReasonPassed
}

// Unseen returns the candidates whose identity has not produced an alert in
// the current window, in input order. It runs before scoring so suppressed
// candidates are never scored.
func (f *Filter) Unseen(candidates []*domain.Candidate) []*domain.Candidate {
	out := make([]*domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !f.isNew(c) {
			observability.RecordFilterDecision(c.Chain.String(), ReasonSeen)
			f.logger.Debug().
				Str("chain", c.Chain.String()).
				Str("pair_id", c.PairID).
				Str("symbol", c.Symbol).
				Msg("candidate already seen")
			continue
		}
		out = append(out, c)
	}
	return out
}

// isNew reports whether none of the candidate's identities is seen. A
// candidate without identity is never new.
func (f *Filter) isNew(c *domain.Candidate) bool {
	keys := idhash.TokenIdentities(c)
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if !f.seen.IsNew(key) {
			return false
		}
	}
	return true
}

// Apply returns the passing candidates ordered by score descending, ties in
// input order. Passing identities are marked seen before Apply returns, so
// a second candidate with the same identity in one call is rejected.
func (f *Filter) Apply(candidates []*domain.Candidate, nowMs int64) []*domain.Candidate {
	passed := make([]*domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		reason := f.Evaluate(c, nowMs)
		observability.RecordFilterDecision(c.Chain.String(), reason)
		if reason != ReasonPassed {
			f.logger.Debug().
				Str("chain", c.Chain.String()).
				Str("pair_id", c.PairID).
				Str("symbol", c.Symbol).
				Float64("score", c.ScoreOrZero()).
				Str("reason", reason).
				Msg("candidate filtered")
			continue
		}
		for _, key := range idhash.TokenIdentities(c) {
			f.seen.MarkSeen(key)
		}
		passed = append(passed, c)
	}

	observability.UpdateSeenState(f.seen.Len())

	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].ScoreOrZero() > passed[j].ScoreOrZero()
	})
	return passed
}
