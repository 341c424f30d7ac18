package domain

// TokenMetadata is enrichment data fetched for a token address.
type TokenMetadata struct {
	Address  string   `json:"address"`
	Name     *string  `json:"name,omitempty"`    // token name (nullable)
	Symbol   *string  `json:"symbol,omitempty"`  // token symbol (nullable)
	Decimals int      `json:"decimals"`          // token decimals
	Supply   *float64 `json:"supply,omitempty"`  // total supply (nullable)
	Holders  *int     `json:"holders,omitempty"` // holder count estimate (nullable)
}
