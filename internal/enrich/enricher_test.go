package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/clock"
	"runner-scout/internal/domain"
	"runner-scout/internal/jsonrpc"
	"runner-scout/internal/solana"
	solanastub "runner-scout/internal/solana/stub"
)

type fakeSource struct {
	meta  map[string]*domain.TokenMetadata
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, address string) (*domain.TokenMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.meta[address], nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestEnricher_FillsMissingFields(t *testing.T) {
	src := &fakeSource{meta: map[string]*domain.TokenMetadata{
		"Mint1": {Address: "Mint1", Name: strPtr("Runner"), Symbol: strPtr("RUN"), Holders: intPtr(420)},
	}}
	e := New(Options{Sources: map[domain.Chain]MetadataSource{domain.ChainSolana: src}})

	c := &domain.Candidate{Chain: domain.ChainSolana, TokenAddress: "Mint1", Symbol: "KEEP", Holders: 100}
	applied := e.Enrich(context.Background(), []*domain.Candidate{c})

	assert.Equal(t, 1, applied)
	assert.Equal(t, "Runner", c.Name)
	assert.Equal(t, "KEEP", c.Symbol, "provider symbol is not overwritten")
	assert.Equal(t, 420, c.Holders)
}

func TestEnricher_BoundedLookupsPerCycle(t *testing.T) {
	src := &fakeSource{meta: map[string]*domain.TokenMetadata{}}
	var outcomes []string
	e := New(Options{
		Sources:     map[domain.Chain]MetadataSource{domain.ChainSolana: src},
		MaxPerCycle: 2,
		OnLookup:    func(_ domain.Chain, outcome string) { outcomes = append(outcomes, outcome) },
	})

	candidates := []*domain.Candidate{
		{Chain: domain.ChainSolana, TokenAddress: "A"},
		{Chain: domain.ChainSolana, TokenAddress: ""},
		{Chain: domain.ChainEthereum, TokenAddress: "0xabc"},
		{Chain: domain.ChainSolana, TokenAddress: "B"},
		{Chain: domain.ChainSolana, TokenAddress: "C"},
	}
	e.Enrich(context.Background(), candidates)

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []string{"not_found", "not_found"}, outcomes)
}

func TestEnricher_UsesCache(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := NewMemoryCache(fake)
	src := &fakeSource{meta: map[string]*domain.TokenMetadata{
		"Mint1": {Address: "Mint1", Holders: intPtr(77)},
	}}
	e := New(Options{
		Sources: map[domain.Chain]MetadataSource{domain.ChainSolana: src},
		Cache:   cache,
		TTL:     time.Minute,
	})

	for i := 0; i < 3; i++ {
		c := &domain.Candidate{Chain: domain.ChainSolana, TokenAddress: "Mint1"}
		e.Enrich(context.Background(), []*domain.Candidate{c})
		assert.Equal(t, 77, c.Holders)
	}
	assert.Equal(t, 1, src.calls)

	fake.Advance(2 * time.Minute)
	e.Enrich(context.Background(), []*domain.Candidate{{Chain: domain.ChainSolana, TokenAddress: "Mint1"}})
	assert.Equal(t, 2, src.calls, "expired entry is refetched")
}

func TestEnricher_SourceErrorLeavesCandidate(t *testing.T) {
	src := &fakeSource{err: errors.New("rpc down")}
	e := New(Options{Sources: map[domain.Chain]MetadataSource{domain.ChainSolana: src}})

	c := &domain.Candidate{Chain: domain.ChainSolana, TokenAddress: "Mint1", Holders: 100}
	applied := e.Enrich(context.Background(), []*domain.Candidate{c})

	assert.Zero(t, applied)
	assert.Equal(t, 100, c.Holders)
}

func TestMemoryCache_Expiry(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := NewMemoryCache(fake)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Second))

	v, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	fake.Advance(time.Second)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestSolanaSource_Holders(t *testing.T) {
	const mint = "So11111111111111111111111111111111111111112"
	rpc := solanastub.NewRPCClient()
	rpc.AddAccount(mint, &solana.AccountInfo{Data: "AA=="})
	rpc.TokenAccounts[mint] = &solana.TokenAccountsPage{Accounts: []solana.TokenAccount{
		{Owner: "o1", Amount: 5}, {Owner: "o2", Amount: 7},
	}}

	meta, err := NewSolanaSource(rpc, 0).Fetch(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.NotNil(t, meta.Holders)
	assert.Equal(t, 2, *meta.Holders)
	assert.Nil(t, meta.Name)
}

func TestEthereumSource_AlchemyMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64        `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alchemy_getTokenMetadata", req.Method)
		assert.Equal(t, []interface{}{"0xabc"}, req.Params)

		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"name":"Pepe Two","symbol":"PEPE2","decimals":18,"logo":null}}`))
	}))
	defer server.Close()

	src := NewEthereumSource(jsonrpc.NewClient(server.URL))

	meta, err := src.Fetch(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, meta.Name)
	assert.Equal(t, "Pepe Two", *meta.Name)
	assert.Equal(t, "PEPE2", *meta.Symbol)
	assert.Equal(t, 18, meta.Decimals)
}
