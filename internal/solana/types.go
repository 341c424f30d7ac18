package solana

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAccount is one holder account of a mint.
type TokenAccount struct {
	Address string
	Owner   string
	Amount  uint64
}

// TokenAccountsPage is one page of getTokenAccounts.
type TokenAccountsPage struct {
	Total    int // total accounts reported by the provider, 0 if unknown
	Page     int
	Accounts []TokenAccount
}

// HolderCount estimates distinct holders with a non-zero balance.
// The provider total wins when it is larger than the page.
func (p *TokenAccountsPage) HolderCount() int {
	if p == nil {
		return 0
	}
	owners := make(map[string]struct{}, len(p.Accounts))
	for _, a := range p.Accounts {
		if a.Amount == 0 || a.Owner == "" {
			continue
		}
		owners[a.Owner] = struct{}{}
	}
	if p.Total > len(p.Accounts) {
		return p.Total
	}
	return len(owners)
}
