package enrich

import (
	"context"
	"fmt"
	"strconv"

	"runner-scout/internal/domain"
	"runner-scout/internal/solana"
)

// MetadataSource looks up token metadata for one chain.
// It returns nil metadata when the token is unknown.
type MetadataSource interface {
	Fetch(ctx context.Context, address string) (*domain.TokenMetadata, error)
}

// DefaultHolderPageLimit bounds the token-account page used for holder counts.
const DefaultHolderPageLimit = 1000

// SolanaSource reads mint and Metaplex metadata plus holder counts via RPC.
type SolanaSource struct {
	rpc         solana.RPCClient
	holderLimit int
}

// NewSolanaSource creates a Solana metadata source.
func NewSolanaSource(rpc solana.RPCClient, holderLimit int) *SolanaSource {
	if holderLimit <= 0 {
		holderLimit = DefaultHolderPageLimit
	}
	return &SolanaSource{rpc: rpc, holderLimit: holderLimit}
}

// Fetch returns metadata with a holder estimate. A failed holder lookup
// still returns the metadata.
func (s *SolanaSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	meta, err := solana.FetchMetadata(ctx, s.rpc, mint)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	page, err := s.rpc.GetTokenAccounts(ctx, mint, s.holderLimit)
	if err == nil {
		if n := page.HolderCount(); n > 0 {
			meta.Holders = &n
		}
	}

	return meta, nil
}

// Caller performs one JSON-RPC call.
type Caller interface {
	Call(ctx context.Context, method string, params interface{}, result interface{}) error
}

// EthereumSource reads ERC-20 metadata through alchemy_getTokenMetadata.
type EthereumSource struct {
	rpc Caller
}

// NewEthereumSource creates an Ethereum metadata source.
func NewEthereumSource(rpc Caller) *EthereumSource {
	return &EthereumSource{rpc: rpc}
}

type alchemyTokenMetadata struct {
	Name     *string     `json:"name"`
	Symbol   *string     `json:"symbol"`
	Decimals interface{} `json:"decimals"`
	Logo     *string     `json:"logo"`
}

// Fetch returns name, symbol and decimals of an ERC-20 contract.
func (s *EthereumSource) Fetch(ctx context.Context, address string) (*domain.TokenMetadata, error) {
	var result *alchemyTokenMetadata
	if err := s.rpc.Call(ctx, "alchemy_getTokenMetadata", []interface{}{address}, &result); err != nil {
		return nil, fmt.Errorf("alchemy_getTokenMetadata: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	meta := &domain.TokenMetadata{
		Address:  address,
		Name:     nonEmpty(result.Name),
		Symbol:   nonEmpty(result.Symbol),
		Decimals: decimals(result.Decimals),
	}
	return meta, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// decimals accepts a JSON number or a numeric string.
func decimals(v interface{}) int {
	switch d := v.(type) {
	case float64:
		return int(d)
	case string:
		n, err := strconv.Atoi(d)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

var (
	_ MetadataSource = (*SolanaSource)(nil)
	_ MetadataSource = (*EthereumSource)(nil)
)
