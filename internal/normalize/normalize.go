// Package normalize maps provider RawRecords to canonical Candidates.
// Normalizers are pure: the only time input is RawRecord.FetchedAtMs.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"runner-scout/internal/domain"
	"runner-scout/internal/provider"
)

var (
	// ErrMissingIdentity is returned for records with neither pair id nor token address.
	ErrMissingIdentity = errors.New("record has no pair id or token address")

	// ErrUnknownProvider is returned when no normalizer is registered for a record kind.
	ErrUnknownProvider = errors.New("no normalizer for provider kind")

	// ErrMalformedRecord is returned when a payload cannot be decoded at all.
	ErrMalformedRecord = errors.New("malformed record")
)

// Func converts one RawRecord into a Candidate.
type Func func(rec domain.RawRecord) (*domain.Candidate, error)

// Registry selects a normalizer by RawRecord.Kind.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a registry with the built-in provider normalizers.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register(provider.SchemaDexScreener, DexScreener)
	r.Register(provider.SchemaBirdeye, Birdeye)
	r.Register(provider.SchemaSolscan, Solscan)
	r.Register(provider.SchemaCoinGecko, CoinGecko)
	return r
}

// Register sets the normalizer for kind, replacing any existing one.
func (r *Registry) Register(kind string, fn Func) {
	r.funcs[kind] = fn
}

// Normalize converts rec with the normalizer registered for its kind.
// Records without identity are rejected with ErrMissingIdentity.
func (r *Registry) Normalize(rec domain.RawRecord) (*domain.Candidate, error) {
	fn, ok := r.funcs[rec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, rec.Kind)
	}

	c, err := fn(rec)
	if err != nil {
		return nil, err
	}
	if c.PairID == "" && c.TokenAddress == "" {
		return nil, ErrMissingIdentity
	}
	if c.Source == "" {
		c.Source = rec.Source
	}
	if c.Chain == "" {
		c.Chain = rec.Chain
	}
	return c, nil
}

// nonNegative maps NaN, Inf and negative quantities to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// finite maps NaN and Inf to 0, keeping the sign.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// epochMillis converts a timestamp. Values that do not fit an int64 are
// treated as missing.
func epochMillis(v float64) int64 {
	v = nonNegative(v)
	if v >= math.MaxInt64 {
		return 0
	}
	return int64(v)
}

// count converts a non-negative quantity, saturating at math.MaxInt32.
func count(v float64) int {
	v = nonNegative(v)
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func holdersOr(v *flexFloat, fallback int) int {
	if v == nil || !(*v > 0) {
		return fallback
	}
	return count(float64(*v))
}

// decode unmarshals a payload, tolerating fields of the wrong JSON type:
// those are left at their zero value.
func decode(rec domain.RawRecord, v interface{}) error {
	err := json.Unmarshal(rec.Payload, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedRecord, rec.Source, err)
}
