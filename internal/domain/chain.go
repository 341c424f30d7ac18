package domain

import "strings"

// Chain identifies the blockchain a candidate trades on.
// The set is open: unknown chains are carried through and scored with the
// default policy.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
)

// ParseChain normalizes a provider chain identifier ("Solana", " ethereum ").
func ParseChain(s string) Chain {
	return Chain(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid reports whether the chain identifier is non-empty.
func (c Chain) IsValid() bool {
	return c != ""
}

// Title returns the display form used in alerts ("Solana").
func (c Chain) Title() string {
	if c == "" {
		return ""
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}
