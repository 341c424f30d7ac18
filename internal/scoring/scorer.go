package scoring

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/domain"
	"runner-scout/internal/observability"
)

// Scorer writes runner scores onto candidates using per-chain policies.
type Scorer struct {
	policies Policies
	logger   zerolog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(policies Policies, logger *zerolog.Logger) *Scorer {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Scorer{policies: policies, logger: l.With().Str("component", "scoring").Logger()}
}

// ScoreAll scores every candidate that has no score yet.
func (s *Scorer) ScoreAll(candidates []*domain.Candidate, nowMs int64) {
	for _, c := range candidates {
		score := Score(c, s.policies.For(c.Chain), nowMs)
		if err := c.SetScore(score); err != nil {
			if errors.Is(err, domain.ErrScoreAlreadySet) {
				continue
			}
			s.logger.Error().Err(err).Str("pair_id", c.PairID).Msg("set score")
			continue
		}
		observability.RecordScore(c.Chain.String(), score)
		s.logger.Debug().
			Str("chain", c.Chain.String()).
			Str("pair_id", c.PairID).
			Str("symbol", c.Symbol).
			Float64("score", score).
			Msg("scored candidate")
	}
}
