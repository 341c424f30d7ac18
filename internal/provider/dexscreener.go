package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"runner-scout/internal/domain"
)

// DefaultDexScreenerURL is the public DexScreener API root.
const DefaultDexScreenerURL = "https://api.dexscreener.com"

// dexPairsResponse is the envelope of search and latest-pairs responses.
type dexPairsResponse struct {
	Pairs []json.RawMessage `json:"pairs"`
}

// dexChainProbe reads only the chain of a pair item.
type dexChainProbe struct {
	ChainID string `json:"chainId"`
}

// DexScreenerAdapter reads pair lists from the DexScreener API, either a
// free-text search (pump.fun, raydium, uniswap, ...) or the latest pairs of
// one chain.
type DexScreenerAdapter struct {
	Base
	client  *Client
	baseURL string
	query   string // search query; empty selects latest-pairs mode
}

// NewDexScreenerSearch creates a search adapter for query.
func NewDexScreenerSearch(base Base, client *Client, baseURL, query string) *DexScreenerAdapter {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	return &DexScreenerAdapter{Base: base, client: client, baseURL: strings.TrimRight(baseURL, "/"), query: query}
}

// NewDexScreenerLatest creates a latest-pairs adapter for base.Chain.
func NewDexScreenerLatest(base Base, client *Client, baseURL string) *DexScreenerAdapter {
	return NewDexScreenerSearch(base, client, baseURL, "")
}

// Name returns the source name.
func (a *DexScreenerAdapter) Name() string {
	return a.Base.Name
}

func (a *DexScreenerAdapter) endpoint() string {
	if a.query != "" {
		return fmt.Sprintf("%s/latest/dex/search?q=%s", a.baseURL, url.QueryEscape(a.query))
	}
	return fmt.Sprintf("%s/latest/dex/pairs/%s", a.baseURL, url.PathEscape(a.Chain.String()))
}

// Fetch returns pairs on the adapter chain, in response order.
func (a *DexScreenerAdapter) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	var resp dexPairsResponse
	if err := a.client.GetJSON(ctx, a.endpoint(), &resp); err != nil {
		return nil, err
	}

	fetchedAt := a.now()
	records := make([]domain.RawRecord, 0, len(resp.Pairs))
	for _, item := range resp.Pairs {
		var probe dexChainProbe
		if err := json.Unmarshal(item, &probe); err != nil {
			// Malformed item: leave it to the record-level drop in normalization.
			records = append(records, a.record(SchemaDexScreener, a.Chain, fetchedAt, item))
			continue
		}
		chain := domain.ParseChain(probe.ChainID)
		if !a.accepts(chain) {
			continue
		}
		records = append(records, a.record(SchemaDexScreener, chain, fetchedAt, item))
	}

	return truncate(records, limit), nil
}

var _ Adapter = (*DexScreenerAdapter)(nil)
