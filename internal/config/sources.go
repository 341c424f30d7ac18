package config

import (
	"runner-scout/internal/domain"
	"runner-scout/internal/provider"
)

// DefaultSources is the built-in source catalogue: DexScreener searches
// and the Solana latest-pairs feed are preferred; list providers and the
// new-pairs page only run when those yield nothing.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "pumpfun", Kind: provider.SourceDexScreenerSearch, Group: domain.GroupPreferred,
			Chain: domain.ChainSolana, Query: "pump.fun", DefaultHolders: 100},
		{Name: "raydium", Kind: provider.SourceDexScreenerSearch, Group: domain.GroupPreferred,
			Chain: domain.ChainSolana, Query: "raydium", MaxMarketCap: 5_000_000},
		{Name: "solana_dex", Kind: provider.SourceDexScreenerSearch, Group: domain.GroupPreferred,
			Chain: domain.ChainSolana, Query: "solana", MaxMarketCap: 10_000_000},
		{Name: "solana_latest", Kind: provider.SourceDexScreenerLatest, Group: domain.GroupPreferred,
			Chain: domain.ChainSolana},
		{Name: "uniswap", Kind: provider.SourceDexScreenerSearch, Group: domain.GroupPreferred,
			Chain: domain.ChainEthereum, Query: "uniswap", DefaultHolders: 150},
		{Name: "ethereum_dex", Kind: provider.SourceDexScreenerSearch, Group: domain.GroupPreferred,
			Chain: domain.ChainEthereum, Query: "ethereum", DefaultHolders: 200, MaxMarketCap: 10_000_000},
		{Name: "new_pairs", Kind: provider.SourceDexScreenerNewPairs, Group: domain.GroupFallback},
		{Name: "birdeye", Kind: provider.SourceBirdeye, Group: domain.GroupFallback,
			Chain: domain.ChainSolana, DefaultHolders: 100, MaxMarketCap: 5_000_000},
		{Name: "solscan", Kind: provider.SourceSolscan, Group: domain.GroupFallback,
			Chain: domain.ChainSolana, DefaultHolders: 50},
		{Name: "coingecko", Kind: provider.SourceCoinGecko, Group: domain.GroupFallback,
			DefaultHolders: 75, MaxMarketCap: 5_000_000},
	}
}
