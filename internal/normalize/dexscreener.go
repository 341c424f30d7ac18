package normalize

import (
	"fmt"
	"strings"

	"runner-scout/internal/domain"
)

type dexToken struct {
	Address flexString `json:"address"`
	Name    flexString `json:"name"`
	Symbol  flexString `json:"symbol"`
}

type dexTxns struct {
	Buys  flexFloat `json:"buys"`
	Sells flexFloat `json:"sells"`
}

type dexPair struct {
	ChainID     flexString `json:"chainId"`
	PairAddress flexString `json:"pairAddress"`
	URL         flexString `json:"url"`
	BaseToken   dexToken   `json:"baseToken"`
	Liquidity   struct {
		USD flexFloat `json:"usd"`
	} `json:"liquidity"`
	FDV           flexFloat            `json:"fdv"`
	MarketCap     flexFloat            `json:"marketCap"`
	Volume        map[string]flexFloat `json:"volume"`
	PriceChange   map[string]flexFloat `json:"priceChange"`
	Txns          map[string]dexTxns   `json:"txns"`
	PairCreatedAt flexFloat            `json:"pairCreatedAt"`
	Holders       *flexFloat           `json:"holders"`
}

// dexWindows maps DexScreener window keys to canonical windows.
var dexWindows = map[string]domain.Window{
	"m5":  domain.Window5m,
	"h1":  domain.Window1h,
	"h6":  domain.Window6h,
	"h24": domain.Window24h,
}

// DexScreener normalizes a DexScreener pair object (API search, latest pairs
// and the scraped new-pairs page share this shape).
// FDV falls back to marketCap; a missing pairCreatedAt leaves CreatedAtMs at 0.
func DexScreener(rec domain.RawRecord) (*domain.Candidate, error) {
	var p dexPair
	if err := decode(rec, &p); err != nil {
		return nil, err
	}

	chain := domain.ParseChain(string(p.ChainID))
	if chain == "" {
		chain = rec.Chain
	}

	c := &domain.Candidate{
		Chain:        chain,
		PairID:       strings.TrimSpace(string(p.PairAddress)),
		TokenAddress: strings.TrimSpace(string(p.BaseToken.Address)),
		Name:         string(p.BaseToken.Name),
		Symbol:       string(p.BaseToken.Symbol),
		URL:          string(p.URL),
		LiquidityUSD: nonNegative(p.Liquidity.USD.float()),
		FDVUSD:       nonNegative(p.FDV.float()),
		Volume24hUSD: nonNegative(p.Volume["h24"].float()),
		Volume6hUSD:  nonNegative(p.Volume["h6"].float()),
		PriceChange:  make(map[domain.Window]float64, len(dexWindows)),
		CreatedAtMs:  epochMillis(p.PairCreatedAt.float()),
		Holders:      holdersOr(p.Holders, rec.DefaultHolders),
		Source:       rec.Source,
	}
	if c.FDVUSD == 0 {
		c.FDVUSD = nonNegative(p.MarketCap.float())
	}

	for key, w := range dexWindows {
		c.PriceChange[w] = finite(p.PriceChange[key].float())
	}

	if len(p.Txns) > 0 {
		c.Txns = make(map[domain.Window]domain.TxnCounts, len(p.Txns))
		for key, t := range p.Txns {
			w, ok := dexWindows[key]
			if !ok {
				continue
			}
			c.Txns[w] = domain.TxnCounts{
				Buys:  count(t.Buys.float()),
				Sells: count(t.Sells.float()),
			}
		}
	}

	if c.URL == "" && c.PairID != "" && chain != "" {
		c.URL = fmt.Sprintf("https://dexscreener.com/%s/%s", chain, c.PairID)
	}

	return c, nil
}
