package provider

import (
	"context"
	"encoding/json"
	"errors"

	"runner-scout/internal/domain"
)

// DefaultBirdeyeEndpoints are tried in order; the first successful one wins.
var DefaultBirdeyeEndpoints = []string{
	"https://public-api.birdeye.so/public/tokenlist?sort_by=v24hChangePercent&sort_type=desc&offset=0&limit=50",
	"https://public-api.birdeye.so/public/tokenlist?sort_by=mc&sort_type=asc&offset=0&limit=50",
}

type birdeyeResponse struct {
	Data struct {
		Tokens []json.RawMessage `json:"tokens"`
	} `json:"data"`
}

// BirdeyeAdapter reads the Birdeye curated token list (Solana).
type BirdeyeAdapter struct {
	Base
	client    *Client
	endpoints []string
}

// NewBirdeye creates a Birdeye token-list adapter.
func NewBirdeye(base Base, client *Client, endpoints []string) *BirdeyeAdapter {
	if len(endpoints) == 0 {
		endpoints = DefaultBirdeyeEndpoints
	}
	if base.Chain == "" {
		base.Chain = domain.ChainSolana
	}
	return &BirdeyeAdapter{Base: base, client: client, endpoints: endpoints}
}

// Name returns the source name.
func (a *BirdeyeAdapter) Name() string {
	return a.Base.Name
}

// Fetch returns tokens from the first endpoint that answers successfully.
// When every endpoint fails the last error is returned.
func (a *BirdeyeAdapter) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	var lastErr error

	for _, endpoint := range a.endpoints {
		var resp birdeyeResponse
		if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
			lastErr = err
			var se *SourceError
			if errors.As(err, &se) && (se.Kind == KindCanceled || se.Kind == KindBreakerOpen) {
				break
			}
			continue
		}

		fetchedAt := a.now()
		records := make([]domain.RawRecord, 0, len(resp.Data.Tokens))
		for _, item := range resp.Data.Tokens {
			records = append(records, a.record(SchemaBirdeye, a.Chain, fetchedAt, item))
		}
		return truncate(records, limit), nil
	}

	if lastErr == nil {
		return nil, nil
	}
	return nil, AsSourceError(a.Base.Name, lastErr)
}

var _ Adapter = (*BirdeyeAdapter)(nil)
