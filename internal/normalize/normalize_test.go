package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/domain"
	"runner-scout/internal/provider"
)

const fetchedAt = int64(1767268800000)

func raw(kind, source string, chain domain.Chain, holders int, payload string) domain.RawRecord {
	return domain.RawRecord{
		Source:         source,
		Kind:           kind,
		Chain:          chain,
		DefaultHolders: holders,
		FetchedAtMs:    fetchedAt,
		Payload:        json.RawMessage(payload),
	}
}

const dexPairJSON = `{
	"chainId": "solana",
	"dexId": "raydium",
	"url": "https://dexscreener.com/solana/pair1",
	"pairAddress": "Pair1",
	"baseToken": {"address": "Mint1", "name": "Runner Cat", "symbol": "RCAT"},
	"liquidity": {"usd": 60000.5},
	"fdv": 50000,
	"marketCap": 48000,
	"volume": {"h24": 120000, "h6": 40000, "h1": 9000, "m5": 800},
	"priceChange": {"m5": 12, "h1": "30.5", "h6": -4, "h24": 150},
	"txns": {"h1": {"buys": 200, "sells": 50}, "m5": {"buys": 10, "sells": 2}},
	"pairCreatedAt": 1767268200000
}`

func TestDexScreener_FullPair(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Normalize(raw(provider.SchemaDexScreener, "pumpfun", domain.ChainSolana, 100, dexPairJSON))
	require.NoError(t, err)

	assert.Equal(t, domain.ChainSolana, c.Chain)
	assert.Equal(t, "Pair1", c.PairID)
	assert.Equal(t, "Mint1", c.TokenAddress)
	assert.Equal(t, "Runner Cat", c.Name)
	assert.Equal(t, "RCAT", c.Symbol)
	assert.Equal(t, 60000.5, c.LiquidityUSD)
	assert.Equal(t, 50000.0, c.FDVUSD)
	assert.Equal(t, 120000.0, c.Volume24hUSD)
	assert.Equal(t, 40000.0, c.Volume6hUSD)
	assert.Equal(t, 12.0, c.Change(domain.Window5m))
	assert.Equal(t, 30.5, c.Change(domain.Window1h))
	assert.Equal(t, -4.0, c.Change(domain.Window6h))
	assert.Equal(t, int64(1767268200000), c.CreatedAtMs)
	assert.Equal(t, 100, c.Holders)
	assert.Equal(t, "pumpfun", c.Source)

	h1, ok := c.TxnsFor(domain.Window1h)
	require.True(t, ok)
	assert.Equal(t, domain.TxnCounts{Buys: 200, Sells: 50}, h1)

	_, scored := c.Score()
	assert.False(t, scored)
}

func TestDexScreener_DefaultsAndFallbacks(t *testing.T) {
	payload := `{"pairAddress": "P2", "liquidity": 5000, "marketCap": "75000", "priceChange": null}`

	c, err := DexScreener(raw(provider.SchemaDexScreener, "ethereum_dex", domain.ChainEthereum, 200, payload))
	require.NoError(t, err)

	assert.Equal(t, domain.ChainEthereum, c.Chain, "chain hint used when payload has none")
	assert.Zero(t, c.LiquidityUSD, "wrong-typed field falls back to zero")
	assert.Equal(t, 75000.0, c.FDVUSD, "marketCap used when fdv is absent")
	assert.Zero(t, c.Change(domain.Window1h))
	assert.Nil(t, c.Txns)
	assert.Zero(t, c.CreatedAtMs)
	assert.Equal(t, 200, c.Holders)
	assert.Equal(t, "https://dexscreener.com/ethereum/P2", c.URL)
}

func TestDexScreener_NegativeQuantitiesClamped(t *testing.T) {
	payload := `{"pairAddress": "P3", "liquidity": {"usd": -10}, "fdv": -5, "volume": {"h24": -1}}`

	c, err := DexScreener(raw(provider.SchemaDexScreener, "x", domain.ChainSolana, 0, payload))
	require.NoError(t, err)

	assert.Zero(t, c.LiquidityUSD)
	assert.Zero(t, c.FDVUSD)
	assert.Zero(t, c.Volume24hUSD)
}

func TestDexScreener_OutOfRangeIntegersClamped(t *testing.T) {
	payload := `{
		"pairAddress": "P4",
		"pairCreatedAt": 1e30,
		"holders": 1e30,
		"txns": {"h1": {"buys": 1e20, "sells": 5}}
	}`

	c, err := DexScreener(raw(provider.SchemaDexScreener, "x", domain.ChainSolana, 7, payload))
	require.NoError(t, err)

	assert.Zero(t, c.CreatedAtMs, "unrepresentable timestamp is treated as missing")
	assert.Greater(t, c.AgeMinutes(fetchedAt), 60.0, "a missing timestamp never looks fresh")
	assert.Equal(t, math.MaxInt32, c.Holders)
	assert.Equal(t, domain.TxnCounts{Buys: math.MaxInt32, Sells: 5}, c.Txns[domain.Window1h])
}

func TestNormalize_Idempotent(t *testing.T) {
	reg := NewRegistry()
	records := []domain.RawRecord{
		raw(provider.SchemaDexScreener, "pumpfun", domain.ChainSolana, 100, dexPairJSON),
		raw(provider.SchemaBirdeye, "birdeye", domain.ChainSolana, 100, `{"address":"M1","name":"A","symbol":"B","mc":1000}`),
		raw(provider.SchemaSolscan, "solscan", domain.ChainSolana, 50, `{"tokenAddress":"M2","tokenName":"C"}`),
		raw(provider.SchemaCoinGecko, "coingecko", domain.ChainEthereum, 75, `{"id":"tiny","symbol":"tny","market_cap":3000}`),
	}

	for _, rec := range records {
		first, err := reg.Normalize(rec)
		require.NoError(t, err)
		second, err := reg.Normalize(rec)
		require.NoError(t, err)
		assert.Equal(t, first, second, rec.Kind)
	}
}

func TestNormalize_MissingIdentityDropped(t *testing.T) {
	reg := NewRegistry()

	tests := []domain.RawRecord{
		raw(provider.SchemaDexScreener, "pumpfun", domain.ChainSolana, 0, `{"baseToken":{"name":"NoIds"}}`),
		raw(provider.SchemaBirdeye, "birdeye", domain.ChainSolana, 0, `{"name":"NoAddr"}`),
		raw(provider.SchemaSolscan, "solscan", domain.ChainSolana, 0, `{}`),
		raw(provider.SchemaCoinGecko, "coingecko", domain.ChainEthereum, 0, `{"name":"NoId"}`),
		raw(provider.SchemaDexScreener, "pumpfun", domain.ChainSolana, 0, `[1,2,3]`),
	}

	for _, rec := range tests {
		_, err := reg.Normalize(rec)
		assert.True(t, errors.Is(err, ErrMissingIdentity), "%s: %v", rec.Kind, err)
	}
}

func TestNormalize_MalformedPayload(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Normalize(raw(provider.SchemaDexScreener, "pumpfun", domain.ChainSolana, 0, `{"pairAddress":`))
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}

func TestNormalize_UnknownProvider(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Normalize(raw("jupiter", "jup", domain.ChainSolana, 0, `{}`))
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestNormalize_CustomNormalizer(t *testing.T) {
	reg := NewRegistry()
	reg.Register("static", func(rec domain.RawRecord) (*domain.Candidate, error) {
		return &domain.Candidate{PairID: "fixed"}, nil
	})

	c, err := reg.Normalize(raw("static", "static_src", domain.ChainEthereum, 0, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "static_src", c.Source)
	assert.Equal(t, domain.ChainEthereum, c.Chain)
}

func TestBirdeye(t *testing.T) {
	payload := `{"address":"Mint9","name":"Bird","symbol":"BRD","liquidity":25000,"mc":90000,"v24hUSD":"40000","v24hChangePercent":55}`

	c, err := Birdeye(raw(provider.SchemaBirdeye, "birdeye", "", 100, payload))
	require.NoError(t, err)

	assert.Equal(t, domain.ChainSolana, c.Chain)
	assert.Equal(t, "birdeye_Mint9", c.PairID)
	assert.Equal(t, "Mint9", c.TokenAddress)
	assert.Equal(t, 25000.0, c.LiquidityUSD)
	assert.Equal(t, 90000.0, c.FDVUSD)
	assert.Equal(t, 40000.0, c.Volume24hUSD)
	assert.Equal(t, 55.0, c.Change(domain.Window24h))
	assert.Equal(t, fetchedAt, c.CreatedAtMs)
	assert.Equal(t, 100, c.Holders)
	assert.Equal(t, "https://birdeye.so/token/Mint9", c.URL)
}

func TestSolscan(t *testing.T) {
	payload := `{"tokenAddress":"Mint7","tokenName":"Scan","tokenSymbol":"SCN","holder":1234}`

	c, err := Solscan(raw(provider.SchemaSolscan, "solscan", domain.ChainSolana, 50, payload))
	require.NoError(t, err)

	assert.Equal(t, "solscan_Mint7", c.PairID)
	assert.Equal(t, 10000.0, c.LiquidityUSD)
	assert.Equal(t, 1234, c.Holders, "reported holders win over the placeholder")
	assert.Equal(t, fetchedAt, c.CreatedAtMs)
}

func TestCoinGecko(t *testing.T) {
	payload := `{"id":"small-cap","name":"Small Cap","symbol":"smc","market_cap":4200000,"total_volume":80000,"price_change_percentage_24h":-3.5}`

	c, err := CoinGecko(raw(provider.SchemaCoinGecko, "coingecko", "", 75, payload))
	require.NoError(t, err)

	assert.Equal(t, domain.ChainEthereum, c.Chain)
	assert.Equal(t, "coingecko_small-cap", c.PairID)
	assert.Empty(t, c.TokenAddress)
	assert.Equal(t, "SMC", c.Symbol)
	assert.Equal(t, 8000.0, c.LiquidityUSD)
	assert.Equal(t, 4200000.0, c.FDVUSD)
	assert.Equal(t, fetchedAt-3600000, c.CreatedAtMs)
	assert.Equal(t, -3.5, c.Change(domain.Window24h))
	assert.Equal(t, 75, c.Holders)
}
