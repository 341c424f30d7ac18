// Package enrich back-fills holder counts and token names on aggregated
// candidates from chain RPC providers, with a bounded number of lookups per
// cycle and a shared result cache.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/domain"
)

// Default configuration values.
const (
	DefaultMaxPerCycle = 10
	DefaultTTL         = 30 * time.Minute
)

// Options configures an Enricher.
type Options struct {
	Sources     map[domain.Chain]MetadataSource
	Cache       Cache // nil disables caching
	TTL         time.Duration
	MaxPerCycle int
	Logger      *zerolog.Logger
	// OnLookup is called once per remote lookup with its outcome
	// ("ok", "not_found", "error").
	OnLookup func(chain domain.Chain, outcome string)
}

// Enricher applies chain metadata to candidates.
type Enricher struct {
	sources     map[domain.Chain]MetadataSource
	cache       Cache
	ttl         time.Duration
	maxPerCycle int
	logger      zerolog.Logger
	onLookup    func(domain.Chain, string)
}

// New creates an Enricher.
func New(opts Options) *Enricher {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxPerCycle := opts.MaxPerCycle
	if maxPerCycle <= 0 {
		maxPerCycle = DefaultMaxPerCycle
	}
	return &Enricher{
		sources:     opts.Sources,
		cache:       opts.Cache,
		ttl:         ttl,
		maxPerCycle: maxPerCycle,
		logger:      logger.With().Str("component", "enrich").Logger(),
		onLookup:    opts.OnLookup,
	}
}

// Enrich fills candidates in order. Cached results are always applied;
// at most MaxPerCycle remote lookups are made. Returns the number of
// candidates that received metadata.
func (e *Enricher) Enrich(ctx context.Context, candidates []*domain.Candidate) int {
	lookups := 0
	applied := 0

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		src, ok := e.sources[c.Chain]
		if !ok || c.TokenAddress == "" {
			continue
		}

		key := cacheKey(c)
		if meta, ok := e.cached(ctx, key); ok {
			if apply(c, meta) {
				applied++
			}
			continue
		}

		if lookups >= e.maxPerCycle {
			continue
		}
		lookups++

		meta, err := src.Fetch(ctx, c.TokenAddress)
		switch {
		case err != nil:
			e.record(c.Chain, "error")
			e.logger.Debug().Err(err).
				Str("chain", c.Chain.String()).
				Str("token", c.TokenAddress).
				Msg("metadata lookup failed")
			continue
		case meta == nil:
			e.record(c.Chain, "not_found")
			meta = &domain.TokenMetadata{Address: c.TokenAddress}
		default:
			e.record(c.Chain, "ok")
		}

		e.store(ctx, key, meta)
		if apply(c, meta) {
			applied++
		}
	}

	return applied
}

func (e *Enricher) cached(ctx context.Context, key string) (*domain.TokenMetadata, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, found, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("metadata cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	var meta domain.TokenMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}
	return &meta, true
}

func (e *Enricher) store(ctx context.Context, key string, meta *domain.TokenMetadata) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("metadata cache write failed")
	}
}

func (e *Enricher) record(chain domain.Chain, outcome string) {
	if e.onLookup != nil {
		e.onLookup(chain, outcome)
	}
}

func cacheKey(c *domain.Candidate) string {
	return "meta:" + c.Chain.String() + ":" + c.TokenAddress
}

// apply copies missing name/symbol and a positive holder count.
func apply(c *domain.Candidate, meta *domain.TokenMetadata) bool {
	changed := false
	if c.Name == "" && meta.Name != nil {
		c.Name = *meta.Name
		changed = true
	}
	if c.Symbol == "" && meta.Symbol != nil {
		c.Symbol = *meta.Symbol
		changed = true
	}
	if meta.Holders != nil && *meta.Holders > 0 {
		c.Holders = *meta.Holders
		changed = true
	}
	return changed
}
