package reporting

import (
	"time"

	"runner-scout/internal/domain"
)

// Report summarizes the observations and alerts of one poll cycle.
type Report struct {
	GeneratedAt time.Time
	CycleID     int64
	ObservedAt  int64 // Unix ms of the cycle start; 0 when nothing was observed

	Summary Summary

	// Sorted by source name.
	Sources []SourceRow

	// Sorted by chain.
	Chains []ChainRow

	// Highest scores first, at most Generator top-N rows.
	Top []*domain.Observation

	// Alerts emitted for the cycle, score DESC.
	Alerts []*domain.Alert
}

// Summary describes the whole cycle.
type Summary struct {
	Observed    int
	Passed      int
	PassRate    float64
	ScoreMean   float64
	ScoreMedian float64
	ScoreP90    float64
	HighScores  int // observations at or above the high-score cutoff
}

// SourceRow is the contribution of one source.
type SourceRow struct {
	Source    string
	Observed  int
	Passed    int
	ScoreMean float64
	ScoreMax  float64
}

// ChainRow is the score distribution of one chain.
type ChainRow struct {
	Chain       domain.Chain
	Observed    int
	Passed      int
	ScoreMedian float64
	LiqMedian   float64
	FDVMedian   float64
}
