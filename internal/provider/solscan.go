package provider

import (
	"context"
	"encoding/json"
	"strings"

	"runner-scout/internal/domain"
)

// DefaultSolscanURL is the Solscan public API root.
const DefaultSolscanURL = "https://api.solscan.io"

type solscanResponse struct {
	Data []json.RawMessage `json:"data"`
}

// SolscanAdapter reads Solscan trending tokens (Solana).
type SolscanAdapter struct {
	Base
	client  *Client
	baseURL string
}

// NewSolscan creates a Solscan trending adapter.
func NewSolscan(base Base, client *Client, baseURL string) *SolscanAdapter {
	if baseURL == "" {
		baseURL = DefaultSolscanURL
	}
	if base.Chain == "" {
		base.Chain = domain.ChainSolana
	}
	return &SolscanAdapter{Base: base, client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the source name.
func (a *SolscanAdapter) Name() string {
	return a.Base.Name
}

// Fetch returns trending tokens in rank order.
func (a *SolscanAdapter) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	var resp solscanResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/token/trending", &resp); err != nil {
		return nil, err
	}

	fetchedAt := a.now()
	records := make([]domain.RawRecord, 0, len(resp.Data))
	for _, item := range resp.Data {
		records = append(records, a.record(SchemaSolscan, a.Chain, fetchedAt, item))
	}
	return truncate(records, limit), nil
}

var _ Adapter = (*SolscanAdapter)(nil)
