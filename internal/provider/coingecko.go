package provider

import (
	"context"
	"encoding/json"
	"strings"

	"runner-scout/internal/domain"
)

// DefaultCoinGeckoURL is the CoinGecko public API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com"

// CoinGeckoAdapter reads the smallest-cap coins from CoinGecko markets.
type CoinGeckoAdapter struct {
	Base
	client  *Client
	baseURL string
}

// NewCoinGecko creates a CoinGecko markets adapter.
func NewCoinGecko(base Base, client *Client, baseURL string) *CoinGeckoAdapter {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if base.Chain == "" {
		base.Chain = domain.ChainEthereum
	}
	return &CoinGeckoAdapter{Base: base, client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the source name.
func (a *CoinGeckoAdapter) Name() string {
	return a.Base.Name
}

// Fetch returns markets ordered by ascending market cap.
func (a *CoinGeckoAdapter) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	endpoint := a.baseURL + "/api/v3/coins/markets?vs_currency=usd&order=market_cap_asc&per_page=50&page=1"

	var items []json.RawMessage
	if err := a.client.GetJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}

	fetchedAt := a.now()
	records := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, a.record(SchemaCoinGecko, a.Chain, fetchedAt, item))
	}
	return truncate(records, limit), nil
}

var _ Adapter = (*CoinGeckoAdapter)(nil)
