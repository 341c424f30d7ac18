// Package provider contains the upstream market-data source adapters.
// Each adapter fetches one provider surface and splits the response into
// RawRecords; schema mapping happens in package normalize.
package provider

import (
	"context"
	"encoding/json"
	"time"

	"runner-scout/internal/domain"
)

// Provider schema kinds. They select the normalizer for a RawRecord.
const (
	SchemaDexScreener = "dexscreener"
	SchemaBirdeye     = "birdeye"
	SchemaSolscan     = "solscan"
	SchemaCoinGecko   = "coingecko"
)

// Adapter fetches raw candidate records from one upstream source.
type Adapter interface {
	// Name returns the unique source name used in logs, metrics and Candidate.Source.
	Name() string

	// Fetch returns at most limit records in provider order.
	// A non-nil error is always a *SourceError; records are nil in that case.
	Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error)
}

// Base carries settings shared by every adapter.
type Base struct {
	Name           string
	Chain          domain.Chain // chain filter and hint; empty accepts all chains
	DefaultHolders int
	Now            func() time.Time
}

func (b Base) now() int64 {
	if b.Now != nil {
		return b.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// record wraps one payload item into a RawRecord.
func (b Base) record(kind string, chain domain.Chain, fetchedAt int64, payload json.RawMessage) domain.RawRecord {
	if chain == "" {
		chain = b.Chain
	}
	return domain.RawRecord{
		Source:         b.Name,
		Kind:           kind,
		Chain:          chain,
		DefaultHolders: b.DefaultHolders,
		FetchedAtMs:    fetchedAt,
		Payload:        payload,
	}
}

// accepts reports whether a payload chain passes the adapter chain filter.
func (b Base) accepts(chain domain.Chain) bool {
	return b.Chain == "" || chain == b.Chain
}

func truncate(records []domain.RawRecord, limit int) []domain.RawRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
