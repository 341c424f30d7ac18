package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Cycle %d Report\n\n", r.CycleID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.ObservedAt > 0 {
		sb.WriteString(fmt.Sprintf("Observed: %s\n\n", time.UnixMilli(r.ObservedAt).UTC().Format(time.RFC3339)))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Observed | %d |\n", r.Summary.Observed))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.Summary.Passed))
	sb.WriteString(fmt.Sprintf("| Pass Rate | %.2f%% |\n", r.Summary.PassRate*100))
	sb.WriteString(fmt.Sprintf("| Score Mean | %.2f |\n", r.Summary.ScoreMean))
	sb.WriteString(fmt.Sprintf("| Score Median | %.2f |\n", r.Summary.ScoreMedian))
	sb.WriteString(fmt.Sprintf("| Score P90 | %.2f |\n", r.Summary.ScoreP90))
	sb.WriteString(fmt.Sprintf("| High Scores | %d |\n", r.Summary.HighScores))
	sb.WriteString("\n")

	sb.WriteString("## Sources\n\n")
	sb.WriteString("| Source | Observed | Passed | Mean Score | Max Score |\n")
	sb.WriteString("|--------|----------|--------|------------|-----------|\n")
	for _, s := range r.Sources {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.1f |\n",
			s.Source, s.Observed, s.Passed, s.ScoreMean, s.ScoreMax))
	}
	sb.WriteString("\n")

	sb.WriteString("## Chains\n\n")
	sb.WriteString("| Chain | Observed | Passed | Median Score | Median LP | Median FDV |\n")
	sb.WriteString("|-------|----------|--------|--------------|-----------|------------|\n")
	for _, c := range r.Chains {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.0f | %.0f |\n",
			c.Chain, c.Observed, c.Passed, c.ScoreMedian, c.LiqMedian, c.FDVMedian))
	}
	sb.WriteString("\n")

	sb.WriteString("## Top Scores\n\n")
	sb.WriteString("| Score | Chain | Symbol | Pair | Source | Age (m) | Passed |\n")
	sb.WriteString("|-------|-------|--------|------|--------|---------|--------|\n")
	for _, o := range r.Top {
		passed := "no"
		if o.Passed {
			passed = "yes"
		}
		sb.WriteString(fmt.Sprintf("| %.1f | %s | %s | %s | %s | %.0f | %s |\n",
			o.Score, o.Chain, o.Symbol, o.PairID, o.Source, o.AgeMinutes, passed))
	}
	sb.WriteString("\n")

	sb.WriteString("## Alerts\n\n")
	if len(r.Alerts) == 0 {
		sb.WriteString("No alerts emitted.\n")
	} else {
		sb.WriteString("| Score | Chain | Name | Pair | Source |\n")
		sb.WriteString("|-------|-------|------|------|--------|\n")
		for _, a := range r.Alerts {
			sb.WriteString(fmt.Sprintf("| %.1f | %s | %s | %s | %s |\n",
				a.Score, a.Chain, a.Name, a.PairID, a.Source))
		}
	}
	sb.WriteString("\n")

	return sb.String()
}
