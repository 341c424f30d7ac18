package domain

// Alert is a scored candidate as handed to external dispatchers.
// Corresponds to the alerts table in PostgreSQL.
type Alert struct {
	ID           string
	CycleID      int64
	Chain        Chain
	Name         string
	Symbol       string
	PairID       string
	TokenAddress string
	Source       string
	URL          string
	Score        float64
	MarketCapUSD float64
	LiquidityUSD float64
	Holders      int
	AgeMinutes   float64
	CreatedAt    int64 // emission time (ms)
}

// Observation is one scored candidate as seen in one cycle, whether or not
// it passed the filter. Corresponds to candidate_observations in ClickHouse.
type Observation struct {
	CycleID      int64
	ObservedAtMs int64
	Chain        Chain
	PairID       string
	TokenAddress string
	Symbol       string
	Source       string
	Score        float64
	FDVUSD       float64
	LiquidityUSD float64
	Volume24hUSD float64
	AgeMinutes   float64
	Passed       bool
}
