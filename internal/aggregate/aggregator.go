// Package aggregate runs the configured source adapters for one poll cycle
// and merges their normalized output into a single ordered candidate list.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/domain"
	"runner-scout/internal/idhash"
	"runner-scout/internal/normalize"
	"runner-scout/internal/observability"
	"runner-scout/internal/provider"
)

// DefaultLimit is the per-source fetch limit when none is configured.
const DefaultLimit = 20

// Source is one configured adapter.
type Source struct {
	Adapter      provider.Adapter
	Group        domain.SourceGroup
	Limit        int
	MaxMarketCap float64 // candidates above this FDV are dropped; 0 disables
}

// Enricher back-fills candidate metadata after deduplication.
type Enricher interface {
	Enrich(ctx context.Context, candidates []*domain.Candidate) int
}

// Options configures an Aggregator.
type Options struct {
	Sources           []Source
	Normalizer        *normalize.Registry // nil uses normalize.NewRegistry()
	AlwaysRunFallback bool
	DefaultLimit      int
	Enricher          Enricher // optional
	Logger            *zerolog.Logger
}

// Aggregator runs one aggregation pass per call to Run.
type Aggregator struct {
	sources           []Source
	normalizer        *normalize.Registry
	alwaysRunFallback bool
	defaultLimit      int
	enricher          Enricher
	logger            zerolog.Logger
}

// SourceReport summarizes one source's contribution to a cycle.
type SourceReport struct {
	Name        string
	Group       domain.SourceGroup
	Fetched     int
	Normalized  int
	Dropped     int
	Prefiltered int
	Duplicates  int
	Duration    time.Duration
	Err         *provider.SourceError
}

// Result is the output of one aggregation pass.
type Result struct {
	Candidates      []*domain.Candidate
	Reports         []SourceReport
	FallbackSkipped bool
}

// New creates an Aggregator. At least one source is required.
func New(opts Options) (*Aggregator, error) {
	if len(opts.Sources) == 0 {
		return nil, errors.New("aggregate: no sources configured")
	}
	names := make(map[string]struct{}, len(opts.Sources))
	for i, s := range opts.Sources {
		if s.Adapter == nil {
			return nil, fmt.Errorf("aggregate: source %d has no adapter", i)
		}
		if !s.Group.IsValid() {
			return nil, fmt.Errorf("aggregate: source %s: invalid group %q", s.Adapter.Name(), s.Group)
		}
		if _, dup := names[s.Adapter.Name()]; dup {
			return nil, fmt.Errorf("aggregate: duplicate source name %q", s.Adapter.Name())
		}
		names[s.Adapter.Name()] = struct{}{}
	}

	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewRegistry()
	}
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Aggregator{
		sources:           opts.Sources,
		normalizer:        normalizer,
		alwaysRunFallback: opts.AlwaysRunFallback,
		defaultLimit:      limit,
		enricher:          opts.Enricher,
		logger:            logger.With().Str("component", "aggregate").Logger(),
	}, nil
}

// fetchResult is the raw outcome of one adapter call.
type fetchResult struct {
	source   Source
	records  []domain.RawRecord
	err      *provider.SourceError
	duration time.Duration
}

// Run executes the preferred group and, unless it produced candidates,
// the fallback group. Adapters of a group run concurrently; all of them
// finish before any normalization or deduplication happens.
// Per-source order is preserved and sources appear in configuration order.
func (a *Aggregator) Run(ctx context.Context) *Result {
	res := &Result{}
	seen := make(map[string]struct{})

	preferred := a.group(domain.GroupPreferred)
	fallback := a.group(domain.GroupFallback)

	produced := a.collect(ctx, preferred, seen, res)

	switch {
	case len(fallback) == 0:
	case produced > 0 && !a.alwaysRunFallback:
		res.FallbackSkipped = true
		observability.RecordFallbackSkipped()
		a.logger.Debug().Int("preferred_candidates", produced).Msg("skipping fallback sources")
	default:
		a.collect(ctx, fallback, seen, res)
	}

	if a.enricher != nil && len(res.Candidates) > 0 {
		a.enricher.Enrich(ctx, res.Candidates)
	}

	return res
}

func (a *Aggregator) group(g domain.SourceGroup) []Source {
	var out []Source
	for _, s := range a.sources {
		if s.Group == g {
			out = append(out, s)
		}
	}
	return out
}

// collect fetches a group, then normalizes, prefilters and deduplicates in
// source order. Returns the number of candidates that survived prefiltering
// (duplicates included).
func (a *Aggregator) collect(ctx context.Context, sources []Source, seen map[string]struct{}, res *Result) int {
	if len(sources) == 0 {
		return 0
	}

	results := a.fetchAll(ctx, sources)
	produced := 0
	duplicates := 0

	for _, fr := range results {
		name := fr.source.Adapter.Name()
		report := SourceReport{
			Name:     name,
			Group:    fr.source.Group,
			Fetched:  len(fr.records),
			Duration: fr.duration,
			Err:      fr.err,
		}

		if fr.err != nil {
			observability.RecordSourceFetch(name, 0, fr.duration.Seconds(), string(fr.err.Kind))
			a.logger.Warn().
				Str("source", name).
				Str("kind", string(fr.err.Kind)).
				Int("status", fr.err.Status).
				Err(fr.err.Err).
				Msg("source returned no data")
			res.Reports = append(res.Reports, report)
			continue
		}
		observability.RecordSourceFetch(name, len(fr.records), fr.duration.Seconds(), "")

		for _, rec := range fr.records {
			c, err := a.normalizer.Normalize(rec)
			if err != nil {
				report.Dropped++
				observability.RecordDropped(name, dropReason(err))
				a.logger.Debug().Err(err).Str("source", name).Msg("record dropped")
				continue
			}
			report.Normalized++

			if ceiling := fr.source.MaxMarketCap; ceiling > 0 && c.FDVUSD >= ceiling {
				report.Prefiltered++
				observability.RecordDropped(name, "market_cap")
				continue
			}
			produced++

			key := idhash.CycleKey(c)
			if _, dup := seen[key]; dup {
				report.Duplicates++
				duplicates++
				continue
			}
			seen[key] = struct{}{}
			res.Candidates = append(res.Candidates, c)
		}

		res.Reports = append(res.Reports, report)
	}

	if duplicates > 0 {
		observability.RecordDuplicates(duplicates)
	}
	return produced
}

// fetchAll runs every adapter in its own goroutine and waits for all.
// Results are returned in the order of sources.
func (a *Aggregator) fetchAll(ctx context.Context, sources []Source) []fetchResult {
	results := make([]fetchResult, len(sources))

	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, s)
		}(i, s)
	}
	wg.Wait()

	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, s Source) (fr fetchResult) {
	fr.source = s
	name := s.Adapter.Name()
	start := time.Now()

	defer func() {
		fr.duration = time.Since(start)
		if r := recover(); r != nil {
			fr.records = nil
			fr.err = &provider.SourceError{
				Source: name,
				Kind:   provider.KindInternal,
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()

	limit := s.Limit
	if limit <= 0 {
		limit = a.defaultLimit
	}

	records, err := s.Adapter.Fetch(ctx, limit)
	if err != nil {
		fr.err = provider.AsSourceError(name, err)
		return fr
	}
	fr.records = records
	return fr
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, normalize.ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, normalize.ErrUnknownProvider):
		return "unknown_provider"
	case errors.Is(err, normalize.ErrMalformedRecord):
		return "malformed"
	default:
		return "other"
	}
}
