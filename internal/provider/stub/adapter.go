package stub

import (
	"context"
	"sync"

	"runner-scout/internal/domain"
	"runner-scout/internal/provider"
)

// Adapter implements provider.Adapter for testing.
type Adapter struct {
	SourceName string
	Records    []domain.RawRecord
	Err        *provider.SourceError

	// Panic, when set, makes Fetch panic with this value.
	Panic interface{}

	mu    sync.Mutex
	calls int
}

// NewAdapter creates a stub adapter returning records.
func NewAdapter(name string, records ...domain.RawRecord) *Adapter {
	return &Adapter{SourceName: name, Records: records}
}

// NewFailing creates a stub adapter that always fails with kind.
func NewFailing(name string, kind provider.ErrorKind) *Adapter {
	return &Adapter{
		SourceName: name,
		Err:        &provider.SourceError{Source: name, Kind: kind},
	}
}

// Name returns the stub source name.
func (a *Adapter) Name() string {
	return a.SourceName
}

// Fetch returns the configured records or error.
func (a *Adapter) Fetch(_ context.Context, limit int) ([]domain.RawRecord, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.Panic != nil {
		panic(a.Panic)
	}
	if a.Err != nil {
		return nil, a.Err
	}

	records := a.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]domain.RawRecord, len(records))
	copy(out, records)
	return out, nil
}

// Calls returns how many times Fetch was called.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

var _ provider.Adapter = (*Adapter)(nil)
