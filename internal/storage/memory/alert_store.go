// Package memory provides in-memory storage backends used by default and
// in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
// It keeps at most capacity alerts, evicting the oldest first.
type AlertStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string                 // insertion order of ids
	data     map[string]*domain.Alert // keyed by alert id
}

// DefaultAlertCapacity bounds the in-memory alert log.
const DefaultAlertCapacity = 1000

// NewAlertStore creates a new in-memory alert store. capacity <= 0 uses
// DefaultAlertCapacity.
func NewAlertStore(capacity int) *AlertStore {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertStore{
		capacity: capacity,
		data:     make(map[string]*domain.Alert),
	}
}

var _ storage.AlertStore = (*AlertStore)(nil)

// InsertBulk adds alerts atomically.
func (s *AlertStore) InsertBulk(_ context.Context, alerts []*domain.Alert) error {
	batch := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		if a == nil || a.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := batch[a.ID]; dup {
			return storage.ErrDuplicateKey
		}
		batch[a.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range alerts {
		if _, exists := s.data[a.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, a := range alerts {
		alertCopy := *a
		s.data[a.ID] = &alertCopy
		s.order = append(s.order, a.ID)
	}

	for len(s.order) > s.capacity {
		delete(s.data, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// GetByID retrieves one alert.
func (s *AlertStore) GetByID(_ context.Context, id string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	alertCopy := *a
	return &alertCopy, nil
}

// GetByCycle retrieves the alerts of one cycle ordered by score DESC.
func (s *AlertStore) GetByCycle(_ context.Context, cycleID int64) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, id := range s.order {
		if a := s.data[id]; a.CycleID == cycleID {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result, nil
}

// Recent returns at most limit alerts, newest first.
func (s *AlertStore) Recent(_ context.Context, limit int) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	result := make([]*domain.Alert, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(result) < limit; i-- {
		alertCopy := *s.data[s.order[i]]
		result = append(result, &alertCopy)
	}
	return result, nil
}

// Len returns the number of stored alerts.
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
