package alert

import (
	"context"
	"fmt"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// StoreEmitter appends alerts to an AlertStore.
type StoreEmitter struct {
	store storage.AlertStore
}

// NewStoreEmitter creates a persistence sink.
func NewStoreEmitter(store storage.AlertStore) *StoreEmitter {
	return &StoreEmitter{store: store}
}

// Emit inserts the cycle's alerts in one batch.
func (e *StoreEmitter) Emit(ctx context.Context, cycle Cycle) error {
	if len(cycle.Alerts) == 0 {
		return nil
	}
	batch := make([]*domain.Alert, len(cycle.Alerts))
	for i := range cycle.Alerts {
		batch[i] = &cycle.Alerts[i]
	}
	if err := e.store.InsertBulk(ctx, batch); err != nil {
		return fmt.Errorf("store alerts: %w", err)
	}
	return nil
}

var _ Emitter = (*StoreEmitter)(nil)
