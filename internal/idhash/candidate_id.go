package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"runner-scout/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate id using SHA256.
// Formula: SHA256(chain|pair_id|token_address)
// Returns hex-encoded hash (64 characters).
func ComputeCandidateID(chain domain.Chain, pairID, tokenAddress string) string {
	data := fmt.Sprintf("%s|%s|%s", chain, pairID, tokenAddress)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// TokenIdentities derives the seen-state keys for a candidate: the
// normalized name and symbol when either is present, and the token address
// (else the pair id) when present. All parts are lowercased with whitespace
// collapsed, and the chain is included so equal tickers on different chains
// stay distinct. A token is seen when any of its keys is, so a name
// back-filled in a later cycle still meets the address key of an earlier
// one. Returns nil when nothing identifies the token.
func TokenIdentities(c *domain.Candidate) []string {
	chain := normalize(string(c.Chain))

	var keys []string
	name := normalize(c.Name)
	symbol := normalize(c.Symbol)
	if name != "" || symbol != "" {
		keys = append(keys, chain+"|"+name+"|"+symbol)
	}

	addr := normalize(c.TokenAddress)
	if addr == "" {
		addr = normalize(c.PairID)
	}
	if addr != "" {
		keys = append(keys, chain+"|addr:"+addr)
	}
	return keys
}

// CycleKey derives the within-cycle dedup key: the pair id when present,
// else the token address. Returns "" when both are empty.
func CycleKey(c *domain.Candidate) string {
	chain := normalize(string(c.Chain))
	if id := strings.TrimSpace(c.PairID); id != "" {
		return chain + "|pair:" + strings.ToLower(id)
	}
	if addr := strings.TrimSpace(c.TokenAddress); addr != "" {
		return chain + "|addr:" + strings.ToLower(addr)
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
