package reporting

import (
	"fmt"
	"strings"

	"runner-scout/internal/domain"
)

// RenderCSV renders observations as CSV string.
func RenderCSV(obs []*domain.Observation) string {
	var sb strings.Builder

	sb.WriteString("cycle_id,observed_at_ms,chain,pair_id,token_address,symbol,source,")
	sb.WriteString("score,fdv_usd,liquidity_usd,volume_24h_usd,age_minutes,passed\n")

	for _, o := range obs {
		sb.WriteString(fmt.Sprintf("%d,%d,%s,%s,%s,%s,%s,%.1f,%.2f,%.2f,%.2f,%.2f,%t\n",
			o.CycleID,
			o.ObservedAtMs,
			o.Chain,
			csvField(o.PairID),
			csvField(o.TokenAddress),
			csvField(o.Symbol),
			csvField(o.Source),
			o.Score,
			o.FDVUSD,
			o.LiquidityUSD,
			o.Volume24hUSD,
			o.AgeMinutes,
			o.Passed,
		))
	}

	return sb.String()
}

// csvField quotes values containing separators or quotes.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
