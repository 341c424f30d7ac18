package normalize

import (
	"strings"

	"runner-scout/internal/domain"
)

// Placeholder liquidity for list providers that report none.
const (
	solscanPlaceholderLiquidity   = 10000
	coingeckoPlaceholderLiquidity = 8000
	coingeckoAssumedAgeMs         = 3600000
)

type birdeyeToken struct {
	Address       flexString `json:"address"`
	Name          flexString `json:"name"`
	Symbol        flexString `json:"symbol"`
	Liquidity     flexFloat  `json:"liquidity"`
	MC            flexFloat  `json:"mc"`
	V24hUSD       flexFloat  `json:"v24hUSD"`
	V24hChangePct flexFloat  `json:"v24hChangePercent"`
	Holders       *flexFloat `json:"holder"`
}

// Birdeye normalizes a Birdeye token-list entry. The list carries no pair or
// creation time: the pair id is derived from the mint and the token is
// treated as created at fetch time.
func Birdeye(rec domain.RawRecord) (*domain.Candidate, error) {
	var t birdeyeToken
	if err := decode(rec, &t); err != nil {
		return nil, err
	}

	addr := strings.TrimSpace(string(t.Address))
	c := &domain.Candidate{
		Chain:        chainOr(rec.Chain, domain.ChainSolana),
		TokenAddress: addr,
		Name:         string(t.Name),
		Symbol:       string(t.Symbol),
		LiquidityUSD: nonNegative(t.Liquidity.float()),
		FDVUSD:       nonNegative(t.MC.float()),
		Volume24hUSD: nonNegative(t.V24hUSD.float()),
		PriceChange:  map[domain.Window]float64{domain.Window24h: finite(t.V24hChangePct.float())},
		CreatedAtMs:  rec.FetchedAtMs,
		Holders:      holdersOr(t.Holders, rec.DefaultHolders),
		Source:       rec.Source,
	}
	if addr != "" {
		c.PairID = "birdeye_" + addr
		c.URL = "https://birdeye.so/token/" + addr
	}
	return c, nil
}

type solscanToken struct {
	TokenAddress flexString `json:"tokenAddress"`
	TokenName    flexString `json:"tokenName"`
	TokenSymbol  flexString `json:"tokenSymbol"`
	MarketCap    flexFloat  `json:"marketCap"`
	Holder       *flexFloat `json:"holder"`
}

// Solscan normalizes a Solscan trending entry. Liquidity is a fixed
// placeholder; creation time is the fetch time.
func Solscan(rec domain.RawRecord) (*domain.Candidate, error) {
	var t solscanToken
	if err := decode(rec, &t); err != nil {
		return nil, err
	}

	addr := strings.TrimSpace(string(t.TokenAddress))
	c := &domain.Candidate{
		Chain:        chainOr(rec.Chain, domain.ChainSolana),
		TokenAddress: addr,
		Name:         string(t.TokenName),
		Symbol:       string(t.TokenSymbol),
		LiquidityUSD: solscanPlaceholderLiquidity,
		FDVUSD:       nonNegative(t.MarketCap.float()),
		PriceChange:  map[domain.Window]float64{},
		CreatedAtMs:  rec.FetchedAtMs,
		Holders:      holdersOr(t.Holder, rec.DefaultHolders),
		Source:       rec.Source,
	}
	if addr != "" {
		c.PairID = "solscan_" + addr
		c.URL = "https://solscan.io/token/" + addr
	}
	return c, nil
}

type coingeckoCoin struct {
	ID          flexString `json:"id"`
	Name        flexString `json:"name"`
	Symbol      flexString `json:"symbol"`
	MarketCap   flexFloat  `json:"market_cap"`
	TotalVolume flexFloat  `json:"total_volume"`
	Change24h   flexFloat  `json:"price_change_percentage_24h"`
}

// CoinGecko normalizes a CoinGecko markets entry. Coins have no contract
// address here; the pair id is derived from the coin id. Creation time is
// assumed one hour before the fetch.
func CoinGecko(rec domain.RawRecord) (*domain.Candidate, error) {
	var t coingeckoCoin
	if err := decode(rec, &t); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(string(t.ID))
	c := &domain.Candidate{
		Chain:        chainOr(rec.Chain, domain.ChainEthereum),
		Name:         string(t.Name),
		Symbol:       strings.ToUpper(string(t.Symbol)),
		LiquidityUSD: coingeckoPlaceholderLiquidity,
		FDVUSD:       nonNegative(t.MarketCap.float()),
		Volume24hUSD: nonNegative(t.TotalVolume.float()),
		PriceChange:  map[domain.Window]float64{domain.Window24h: finite(t.Change24h.float())},
		CreatedAtMs:  rec.FetchedAtMs - coingeckoAssumedAgeMs,
		Holders:      rec.DefaultHolders,
		Source:       rec.Source,
	}
	if c.CreatedAtMs < 0 {
		c.CreatedAtMs = 0
	}
	if id != "" {
		c.PairID = "coingecko_" + id
		c.URL = "https://www.coingecko.com/en/coins/" + id
	}
	return c, nil
}

func chainOr(c, fallback domain.Chain) domain.Chain {
	if c != "" {
		return c
	}
	return fallback
}
