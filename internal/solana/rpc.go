package solana

import "context"

// RPCClient defines the Solana RPC calls used for candidate enrichment.
type RPCClient interface {
	// GetAccountInfo retrieves an account by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccounts lists token accounts of a mint (Helius DAS).
	GetTokenAccounts(ctx context.Context, mint string, limit int) (*TokenAccountsPage, error)
}
