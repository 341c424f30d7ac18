package alert

import "runner-scout/internal/domain"

// Payload is the JSON form of an alert on the bus and the live feed.
type Payload struct {
	ID           string  `json:"id"`
	CycleID      int64   `json:"cycle_id"`
	Chain        string  `json:"chain"`
	Name         string  `json:"name,omitempty"`
	Symbol       string  `json:"symbol,omitempty"`
	PairID       string  `json:"pair_id"`
	TokenAddress string  `json:"token_address,omitempty"`
	Source       string  `json:"source"`
	URL          string  `json:"url,omitempty"`
	Score        float64 `json:"score"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Holders      int     `json:"holders"`
	AgeMinutes   float64 `json:"age_minutes"`
	CreatedAt    int64   `json:"created_at"`
	Text         string  `json:"text"`
}

// NewPayload converts an alert.
func NewPayload(a domain.Alert) Payload {
	return Payload{
		ID:           a.ID,
		CycleID:      a.CycleID,
		Chain:        a.Chain.String(),
		Name:         a.Name,
		Symbol:       a.Symbol,
		PairID:       a.PairID,
		TokenAddress: a.TokenAddress,
		Source:       a.Source,
		URL:          a.URL,
		Score:        a.Score,
		MarketCapUSD: a.MarketCapUSD,
		LiquidityUSD: a.LiquidityUSD,
		Holders:      a.Holders,
		AgeMinutes:   a.AgeMinutes,
		CreatedAt:    a.CreatedAt,
		Text:         Format(a),
	}
}

// Payloads converts every alert of a cycle.
func Payloads(alerts []domain.Alert) []Payload {
	out := make([]Payload, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, NewPayload(a))
	}
	return out
}
