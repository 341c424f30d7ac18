package memory

import (
	"context"
	"sort"
	"sync"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data []*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk appends observations.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.Observation) error {
	for _, o := range obs {
		if o == nil || o.PairID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		obsCopy := *o
		s.data = append(s.data, &obsCopy)
	}
	return nil
}

// GetByCycle retrieves the observations of one cycle ordered by score DESC.
func (s *ObservationStore) GetByCycle(_ context.Context, cycleID int64) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.CycleID == cycleID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result, nil
}

// GetByPair retrieves observations of one pair ordered by observed_at ASC.
func (s *ObservationStore) GetByPair(_ context.Context, chain domain.Chain, pairID string) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.Chain == chain && o.PairID == pairID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ObservedAtMs < result[j].ObservedAtMs
	})
	return result, nil
}
