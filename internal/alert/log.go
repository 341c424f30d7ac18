package alert

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEmitter writes every alert as a structured log line.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates a log sink.
func NewLogEmitter(logger *zerolog.Logger) *LogEmitter {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &LogEmitter{logger: l.With().Str("sink", "log").Logger()}
}

// Emit logs the alerts in rank order.
func (e *LogEmitter) Emit(_ context.Context, cycle Cycle) error {
	for rank, a := range cycle.Alerts {
		e.logger.Info().
			Int64("cycle", cycle.ID).
			Int("rank", rank+1).
			Str("chain", a.Chain.String()).
			Str("pair_id", a.PairID).
			Str("symbol", a.Symbol).
			Str("source", a.Source).
			Float64("score", a.Score).
			Float64("market_cap_usd", a.MarketCapUSD).
			Float64("liquidity_usd", a.LiquidityUSD).
			Int("holders", a.Holders).
			Str("url", a.URL).
			Msg("runner alert")
	}
	return nil
}

var _ Emitter = (*LogEmitter)(nil)
