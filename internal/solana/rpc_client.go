package solana

import (
	"context"

	"runner-scout/internal/jsonrpc"
)

// HTTPClient implements RPCClient over HTTP JSON-RPC 2.0.
type HTTPClient struct {
	rpc *jsonrpc.Client
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...jsonrpc.Option) *HTTPClient {
	return &HTTPClient{rpc: jsonrpc.NewClient(endpoint, opts...)}
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.rpc.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetTokenAccounts retrieves the first page of token accounts for a mint.
func (c *HTTPClient) GetTokenAccounts(ctx context.Context, mint string, limit int) (*TokenAccountsPage, error) {
	params := map[string]interface{}{
		"mint":  mint,
		"page":  1,
		"limit": limit,
	}

	var result getTokenAccountsResult
	if err := c.rpc.Call(ctx, "getTokenAccounts", params, &result); err != nil {
		return nil, err
	}

	page := &TokenAccountsPage{
		Total:    result.Total,
		Page:     result.Page,
		Accounts: make([]TokenAccount, len(result.TokenAccounts)),
	}
	for i, a := range result.TokenAccounts {
		page.Accounts[i] = TokenAccount{
			Address: a.Address,
			Owner:   a.Owner,
			Amount:  a.Amount,
		}
	}

	return page, nil
}

type getTokenAccountsResult struct {
	Total         int                    `json:"total"`
	Limit         int                    `json:"limit"`
	Page          int                    `json:"page"`
	TokenAccounts []getTokenAccountsItem `json:"token_accounts"`
}

type getTokenAccountsItem struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

var _ RPCClient = (*HTTPClient)(nil)
