// Package storage defines the optional persistence sinks of the scout:
// an alert audit log and a time series of scored observations.
package storage

import (
	"context"

	"runner-scout/internal/domain"
)

// AlertStore provides access to alerts storage.
type AlertStore interface {
	// InsertBulk adds alerts atomically. Fails the whole batch with
	// ErrDuplicateKey if any id already exists.
	InsertBulk(ctx context.Context, alerts []*domain.Alert) error

	// GetByID retrieves one alert. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)

	// GetByCycle retrieves the alerts of one cycle ordered by score DESC.
	GetByCycle(ctx context.Context, cycleID int64) ([]*domain.Alert, error)

	// Recent returns at most limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// ObservationStore provides access to candidate observation storage.
type ObservationStore interface {
	// InsertBulk appends observations.
	InsertBulk(ctx context.Context, obs []*domain.Observation) error

	// GetByCycle retrieves the observations of one cycle ordered by score DESC.
	GetByCycle(ctx context.Context, cycleID int64) ([]*domain.Observation, error)

	// GetByPair retrieves observations of one pair ordered by observed_at ASC.
	GetByPair(ctx context.Context, chain domain.Chain, pairID string) ([]*domain.Observation, error)
}
