// Package alert turns the filtered candidates of a cycle into alerts and
// hands them to delivery sinks. The pipeline only knows the Emitter
// interface.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"runner-scout/internal/domain"
)

// Cycle is the output of one poll cycle.
type Cycle struct {
	ID        int64
	StartedAt time.Time
	Alerts    []domain.Alert // ranked, best first
}

// Emitter delivers the alerts of one cycle.
type Emitter interface {
	Emit(ctx context.Context, cycle Cycle) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, cycle Cycle) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, cycle Cycle) error {
	return f(ctx, cycle)
}

// NewAlert builds the alert of a scored candidate.
func NewAlert(cycleID int64, c *domain.Candidate, nowMs int64) domain.Alert {
	return domain.Alert{
		ID:           uuid.NewString(),
		CycleID:      cycleID,
		Chain:        c.Chain,
		Name:         c.Name,
		Symbol:       c.Symbol,
		PairID:       c.PairID,
		TokenAddress: c.TokenAddress,
		Source:       c.Source,
		URL:          c.URL,
		Score:        c.ScoreOrZero(),
		MarketCapUSD: c.FDVUSD,
		LiquidityUSD: c.LiquidityUSD,
		Holders:      c.Holders,
		AgeMinutes:   c.AgeMinutes(nowMs),
		CreatedAt:    nowMs,
	}
}

// NewCycle builds a cycle from ranked candidates, keeping their order.
func NewCycle(id int64, startedAt time.Time, ranked []*domain.Candidate) Cycle {
	nowMs := startedAt.UnixMilli()
	alerts := make([]domain.Alert, 0, len(ranked))
	for _, c := range ranked {
		alerts = append(alerts, NewAlert(id, c, nowMs))
	}
	return Cycle{ID: id, StartedAt: startedAt, Alerts: alerts}
}

// Format renders an alert as a human-readable message.
func Format(a domain.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s runner: %s", a.Chain.Title(), displayName(a))
	fmt.Fprintf(&b, "\nScore: %.1f/5", a.Score)
	fmt.Fprintf(&b, "\nMC: %s | LP: %s", usd(a.MarketCapUSD), usd(a.LiquidityUSD))
	fmt.Fprintf(&b, "\nHolders: %d | Age: %.0fm", a.Holders, a.AgeMinutes)
	if a.TokenAddress != "" {
		fmt.Fprintf(&b, "\nToken: %s", a.TokenAddress)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "\nChart: %s", a.URL)
	}
	return b.String()
}

func displayName(a domain.Alert) string {
	switch {
	case a.Name != "" && a.Symbol != "":
		return fmt.Sprintf("%s ($%s)", a.Name, a.Symbol)
	case a.Symbol != "":
		return "$" + a.Symbol
	case a.Name != "":
		return a.Name
	}
	return a.PairID
}

// usd abbreviates a dollar amount: $950, $12.5K, $1.20M.
func usd(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	}
	return fmt.Sprintf("$%.0f", v)
}
