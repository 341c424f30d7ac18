package provider

import (
	"errors"
	"fmt"
	"time"

	"runner-scout/internal/domain"
)

// SourceKind selects the adapter implementation for a configured source.
type SourceKind string

const (
	SourceDexScreenerSearch   SourceKind = "dexscreener_search"
	SourceDexScreenerLatest   SourceKind = "dexscreener_latest"
	SourceDexScreenerNewPairs SourceKind = "dexscreener_newpairs"
	SourceBirdeye             SourceKind = "birdeye"
	SourceSolscan             SourceKind = "solscan"
	SourceCoinGecko           SourceKind = "coingecko"
)

// ErrUnknownSourceKind is returned by NewAdapter for an unsupported kind.
var ErrUnknownSourceKind = errors.New("unknown source kind")

// IsValid checks if the kind is supported.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceDexScreenerSearch, SourceDexScreenerLatest, SourceDexScreenerNewPairs,
		SourceBirdeye, SourceSolscan, SourceCoinGecko:
		return true
	}
	return false
}

// Spec describes one configured source.
type Spec struct {
	Name           string
	Kind           SourceKind
	Chain          domain.Chain
	Query          string   // dexscreener_search
	BaseURL        string   // API root or page URL; empty uses the public default
	APIURL         string   // dexscreener_newpairs pair lookups
	Endpoints      []string // birdeye
	DefaultHolders int
	Client         ClientOptions
	Now            func() time.Time
}

// NewAdapter builds the adapter for spec with its own client.
func NewAdapter(spec Spec) (Adapter, error) {
	if spec.Name == "" {
		return nil, errors.New("source name is required")
	}

	opts := spec.Client
	opts.Name = spec.Name
	client := NewClient(opts)

	base := Base{
		Name:           spec.Name,
		Chain:          spec.Chain,
		DefaultHolders: spec.DefaultHolders,
		Now:            spec.Now,
	}

	switch spec.Kind {
	case SourceDexScreenerSearch:
		if spec.Query == "" {
			return nil, fmt.Errorf("source %s: query is required for %s", spec.Name, spec.Kind)
		}
		return NewDexScreenerSearch(base, client, spec.BaseURL, spec.Query), nil
	case SourceDexScreenerLatest:
		if !spec.Chain.IsValid() {
			return nil, fmt.Errorf("source %s: chain is required for %s", spec.Name, spec.Kind)
		}
		return NewDexScreenerLatest(base, client, spec.BaseURL), nil
	case SourceDexScreenerNewPairs:
		return NewNewPairs(base, client, spec.BaseURL, spec.APIURL), nil
	case SourceBirdeye:
		return NewBirdeye(base, client, spec.Endpoints), nil
	case SourceSolscan:
		return NewSolscan(base, client, spec.BaseURL), nil
	case SourceCoinGecko:
		return NewCoinGecko(base, client, spec.BaseURL), nil
	default:
		return nil, fmt.Errorf("source %s: %w: %q", spec.Name, ErrUnknownSourceKind, spec.Kind)
	}
}
