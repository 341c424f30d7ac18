package stub

import (
	"context"

	"runner-scout/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string]*solana.TokenAccountsPage
	Err           error
	Calls         int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenAccounts: make(map[string]*solana.TokenAccountsPage),
	}
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[pubkey], nil
}

// GetTokenAccounts returns the stored page, or an empty page.
func (c *RPCClient) GetTokenAccounts(_ context.Context, mint string, limit int) (*solana.TokenAccountsPage, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	page, ok := c.TokenAccounts[mint]
	if !ok {
		return &solana.TokenAccountsPage{Page: 1}, nil
	}
	if limit > 0 && len(page.Accounts) > limit {
		trimmed := *page
		trimmed.Accounts = page.Accounts[:limit]
		return &trimmed, nil
	}
	return page, nil
}

// AddAccount stores an account.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.Accounts[pubkey] = info
}

var _ solana.RPCClient = (*RPCClient)(nil)
